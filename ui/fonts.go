package ui

import (
	"fmt"

	"github.com/veandco/go-sdl2/ttf"
)

// Fonts holds the OSD typefaces.
type Fonts struct {
	Title *ttf.Font // file name
	Body  *ttf.Font // clock, state, volume
}

var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
}

// LoadFonts opens the first usable font, trying extra before the system
// locations. The OSD is skipped by callers when this fails.
func LoadFonts(extra ...string) (*Fonts, error) {
	if err := ttf.Init(); err != nil {
		return nil, fmt.Errorf("ttf init: %w", err)
	}

	paths := append(append([]string{}, extra...), fontPaths...)
	title, err := openFirst(paths, 28)
	if err != nil {
		return nil, err
	}
	body, err := openFirst(paths, 18)
	if err != nil {
		title.Close()
		return nil, err
	}
	return &Fonts{Title: title, Body: body}, nil
}

func openFirst(paths []string, size int) (*ttf.Font, error) {
	for _, path := range paths {
		if f, err := ttf.OpenFont(path, size); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no usable font in %d candidates", len(paths))
}

// Close releases the fonts. It is safe on a nil receiver.
func (f *Fonts) Close() {
	if f == nil {
		return
	}
	if f.Title != nil {
		f.Title.Close()
	}
	if f.Body != nil {
		f.Body.Close()
	}
}
