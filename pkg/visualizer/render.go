package visualizer

import (
	"image"
	"image/draw"

	"github.com/fogleman/gg"
)

// Theme colours for the bars.
type Theme struct {
	Background string
	Low        string
	High       string
}

// DefaultTheme is used by the player host.
var DefaultTheme = Theme{Background: "#00000000", Low: "#2f9e44", High: "#f08c00"}

// Render paints bars into the w×h rectangle at (x, y).
func Render(dc *gg.Context, bars BarFrame, theme Theme, x, y, w, h float64) {
	if theme.Background != "" {
		dc.SetHexColor(theme.Background)
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
	}

	gap := 2.0
	bw := (w - gap*float64(BarCount-1)) / BarCount
	if bw < 1 {
		bw, gap = w/BarCount, 0
	}
	for i, level := range bars.Bars {
		level = min(max(level, 0), 1)
		if level == 0 {
			continue
		}
		bh := level * h
		bx := x + float64(i)*(bw+gap)
		if level > 0.75 {
			dc.SetHexColor(theme.High)
		} else {
			dc.SetHexColor(theme.Low)
		}
		dc.DrawRoundedRectangle(bx, y+h-bh, bw, bh, bw/4)
		dc.Fill()
	}
}

// Image renders bars into a fresh w×h RGBA context.
func Image(bars BarFrame, theme Theme, w, h int) *gg.Context {
	dc := gg.NewContext(w, h)
	Render(dc, bars, theme, 0, 0, float64(w), float64(h))
	return dc
}

// RGBA renders bars into a w×h image ready for texture upload.
func RGBA(bars BarFrame, theme Theme, w, h int) *image.RGBA {
	img := Image(bars, theme, w, h).Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
