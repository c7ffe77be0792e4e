package videoPlayer

import (
	"fmt"
	"math"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/playback"
	"flow-player/ui"
)

var (
	textColor  = sdl.Color{R: 255, G: 255, B: 255, A: 255}
	dimColor   = sdl.Color{R: 148, G: 163, B: 184, A: 255}
	shadeTop   = sdl.Color{R: 0, G: 0, B: 0, A: 0}
	shadeEnd   = sdl.Color{R: 0, G: 0, B: 0, A: 200}
	trackColor = sdl.Color{R: 71, G: 85, B: 105, A: 200}
	fillColor  = sdl.Color{R: 240, G: 140, B: 0, A: 255}
)

// Draw renders the video letterboxed, the visualizer and the OSD.
func (g *VideoPlayerScreen) Draw(renderer *sdl.Renderer, screenWidth, screenHeight int32) error {
	g.screenW, g.screenH = screenWidth, screenHeight
	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.Clear()

	s := g.session
	if s == nil {
		return nil
	}
	info := s.Info()

	if g.video != nil {
		dst := placement(int32(g.videoW), int32(g.videoH), screenWidth, screenHeight, info.Orientation)
		if err := renderer.CopyEx(g.video, nil, &dst, float64(info.Orientation), nil, sdl.FLIP_NONE); err != nil {
			return fmt.Errorf("draw video: %w", err)
		}
	}

	if info.HasAudio && g.player.Visualizer() != nil {
		// Bars fill the screen for audio files and the bottom quarter over
		// video.
		h := screenHeight / 2
		if info.HasVideo {
			h = screenHeight / 4
		}
		if err := g.renderVisualizer(screenWidth, h); err != nil {
			g.log.WithError(err).Debug("visualizer disabled")
		} else if g.visTex != nil {
			dst := sdl.Rect{X: 0, Y: screenHeight - h, W: screenWidth, H: h}
			renderer.Copy(g.visTex, nil, &dst)
		}
	}

	if g.fonts != nil && (time.Now().Before(g.osdUntil) || s.State() == playback.Paused) {
		g.drawOSD(renderer, s, screenWidth, screenHeight)
	}
	return g.devices.Draw(renderer, screenWidth, screenHeight, g.fonts)
}

func (g *VideoPlayerScreen) drawOSD(renderer *sdl.Renderer, s *playback.Session, screenWidth, screenHeight int32) {
	const band = int32(120)
	y := screenHeight - band
	ui.DrawShade(renderer, sdl.Rect{X: 0, Y: y, W: screenWidth, H: band}, shadeTop, shadeEnd)

	title := g.item.Title
	if title == "" {
		title = g.item.Path
	}
	ui.RenderText(renderer, title, 32, y+20, textColor, g.fonts.Title)

	pos, end := s.Position(g.player.Now()), s.EndTime()
	if g.scrubbing {
		pos = g.scrubPos
	}
	clock := formatClock(pos) + " / " + formatClock(end)
	ui.RenderText(renderer, clock, 32, y+62, dimColor, g.fonts.Body)

	status := statusLine(s.State(), s.Volume(), s.Muted())
	ui.RenderText(renderer, status, screenWidth-32-ui.TextWidth(g.fonts.Body, status), y+62, dimColor, g.fonts.Body)

	fraction := 0.0
	if end > 0 {
		fraction = pos / end
	}
	ui.DrawProgress(renderer, sdl.Rect{X: 32, Y: y + 96, W: screenWidth - 64, H: 6}, fraction, trackColor, fillColor)
}

// placement fits a texW×texH texture, turned by orientation degrees, into
// the screen. The returned rect is the unrotated destination for CopyEx.
func placement(texW, texH, screenW, screenH int32, orientation int) sdl.Rect {
	if texW <= 0 || texH <= 0 {
		return sdl.Rect{}
	}
	dispW, dispH := texW, texH
	if orientation == 90 || orientation == 270 {
		dispW, dispH = texH, texW
	}
	scale := math.Min(float64(screenW)/float64(dispW), float64(screenH)/float64(dispH))
	w := int32(float64(texW) * scale)
	h := int32(float64(texH) * scale)
	return sdl.Rect{X: (screenW - w) / 2, Y: (screenH - h) / 2, W: w, H: h}
}

// formatClock renders seconds as m:ss, or h:mm:ss from an hour on.
func formatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	h, m, sec := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func statusLine(state playback.State, volume float64, muted bool) string {
	vol := fmt.Sprintf("vol %d%%", int(math.Round(volume*100)))
	if muted {
		vol = "muted"
	}
	return state.String() + "  " + vol
}
