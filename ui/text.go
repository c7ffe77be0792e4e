package ui

import (
	"errors"
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"
)

var errNoFont = errors.New("font not available")

// RenderText draws text with its top-left corner at (x, y) and returns the
// width it took.
func RenderText(renderer *sdl.Renderer, text string, x, y int32, color sdl.Color, font *ttf.Font) (int32, error) {
	if font == nil {
		return 0, errNoFont
	}
	if text == "" {
		return 0, nil
	}

	surface, err := font.RenderUTF8Blended(text, color)
	if err != nil {
		return 0, fmt.Errorf("render %q: %w", text, err)
	}
	defer surface.Free()

	texture, err := renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return 0, err
	}
	defer texture.Destroy()

	dst := sdl.Rect{X: x, Y: y, W: surface.W, H: surface.H}
	return surface.W, renderer.Copy(texture, nil, &dst)
}

// TextWidth measures text without drawing it.
func TextWidth(font *ttf.Font, text string) int32 {
	if font == nil {
		return 0
	}
	w, _, err := font.SizeUTF8(text)
	if err != nil {
		return 0
	}
	return int32(w)
}
