package ui

import "github.com/veandco/go-sdl2/sdl"

// Lerp mixes two colours, t in [0, 1].
func Lerp(a, b sdl.Color, t float64) sdl.Color {
	mix := func(x, y uint8) uint8 { return uint8(float64(x)*(1-t) + float64(y)*t) }
	return sdl.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// DrawShade fills r with a vertical gradient from top to bottom. Alpha is
// honoured when the renderer blends.
func DrawShade(renderer *sdl.Renderer, r sdl.Rect, top, bottom sdl.Color) {
	for i := int32(0); i < r.H; i++ {
		t := 0.0
		if r.H > 1 {
			t = float64(i) / float64(r.H-1)
		}
		c := Lerp(top, bottom, t)
		renderer.SetDrawColor(c.R, c.G, c.B, c.A)
		renderer.DrawLine(r.X, r.Y+i, r.X+r.W-1, r.Y+i)
	}
}

// DrawProgress draws a track with the filled fraction in fill.
func DrawProgress(renderer *sdl.Renderer, r sdl.Rect, fraction float64, track, fill sdl.Color) {
	fraction = min(max(fraction, 0), 1)
	renderer.SetDrawColor(track.R, track.G, track.B, track.A)
	renderer.FillRect(&r)
	done := r
	done.W = int32(float64(r.W) * fraction)
	if done.W > 0 {
		renderer.SetDrawColor(fill.R, fill.G, fill.B, fill.A)
		renderer.FillRect(&done)
	}
}
