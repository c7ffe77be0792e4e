package root

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/playback"
	"flow-player/screens/videoPlayer"
	"flow-player/ui"
)

// RootScreen owns the window contents: the video screen and the fonts its
// overlays use.
type RootScreen struct {
	log      *logrus.Entry
	window   *sdl.Window
	renderer *sdl.Renderer
	host     *videoPlayer.Host
	fonts    *ui.Fonts
	video    *videoPlayer.VideoPlayerScreen
}

// NewRootScreen creates the root screen. A missing font only disables the
// OSD.
func NewRootScreen(window *sdl.Window, renderer *sdl.Renderer, player *playback.Player, host *videoPlayer.Host, opts videoPlayer.Options) *RootScreen {
	log := logrus.WithField("component", "root")
	fonts, err := ui.LoadFonts()
	if err != nil {
		log.WithError(err).Warn("fonts unavailable, OSD disabled")
	}
	return &RootScreen{
		log:      log,
		window:   window,
		renderer: renderer,
		host:     host,
		fonts:    fonts,
		video:    videoPlayer.NewVideoPlayerScreen(renderer, player, host, fonts, opts),
	}
}

// Open starts playing item.
func (rs *RootScreen) Open(item playback.Item, opts playback.OpenOptions) {
	rs.video.Open(item, opts)
}

// Session returns the session on screen, or nil.
func (rs *RootScreen) Session() *playback.Session { return rs.video.Session() }

// HandleEvent reacts to window events and reports whether the loop should
// keep running.
func (rs *RootScreen) HandleEvent(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return false
	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED || e.Event == sdl.WINDOWEVENT_EXPOSED {
			rs.host.InvalidateView("window")
		}
	}
	return true
}

// Update samples the keyboard and advances the video screen.
func (rs *RootScreen) Update() error {
	return rs.video.Update(sdl.GetKeyboardState())
}

// Draw renders and presents one frame.
func (rs *RootScreen) Draw() error {
	w, h, err := rs.renderer.GetOutputSize()
	if err != nil {
		w, h = rs.window.GetSize()
	}
	if err := rs.video.Draw(rs.renderer, w, h); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	rs.renderer.Present()
	return nil
}

// Close releases textures and fonts.
func (rs *RootScreen) Close() {
	rs.video.Close()
	rs.fonts.Close()
}
