package videoPlayer

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/input"
	"flow-player/pkg/mpeg"
	"flow-player/pkg/performance"
	"flow-player/pkg/playback"
	"flow-player/pkg/visualizer"
	"flow-player/ui"
	"flow-player/widgets/menu"
)

const (
	osdDuration   = 3 * time.Second
	scrubDelay    = 0.4
	scrubRepeat   = 0.1
	volumeStep    = 0.1
	statsInterval = 600
)

var trackedKeys = []sdl.Scancode{
	sdl.SCANCODE_SPACE, sdl.SCANCODE_LEFT, sdl.SCANCODE_RIGHT, sdl.SCANCODE_UP,
	sdl.SCANCODE_DOWN, sdl.SCANCODE_M, sdl.SCANCODE_C, sdl.SCANCODE_A,
	sdl.SCANCODE_RETURN, sdl.SCANCODE_ESCAPE, sdl.SCANCODE_Q,
}

// NewVideoPlayerScreen creates the screen. fonts may be nil, which disables
// the OSD.
func NewVideoPlayerScreen(renderer *sdl.Renderer, player *playback.Player, host *Host, fonts *ui.Fonts, opts Options) *VideoPlayerScreen {
	if opts.SeekStep <= 0 {
		opts.SeekStep = 5
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.CaptureDir == "" {
		opts.CaptureDir = "."
	}

	g := &VideoPlayerScreen{
		log:      logrus.WithField("component", "screen"),
		opts:     opts,
		host:     host,
		player:   player,
		fonts:    fonts,
		renderer: renderer,
		keys:     input.NewKeys(),
		devices:  menu.NewWidget("Audio output"),
	}
	g.logRenderer()
	return g
}

func (g *VideoPlayerScreen) logRenderer() {
	if g.renderer == nil {
		return
	}
	info, err := g.renderer.GetInfo()
	if err != nil {
		return
	}
	g.log.WithFields(logrus.Fields{
		"renderer":    info.Name,
		"accelerated": info.Flags&sdl.RENDERER_ACCELERATED != 0,
		"vsync":       info.Flags&sdl.RENDERER_PRESENTVSYNC != 0,
		"maxTexture":  fmt.Sprintf("%dx%d", info.MaxTextureWidth, info.MaxTextureHeight),
	}).Info("renderer ready")
	performance.LogMemory(g.log)
}

// Open asks the player to open item. The result arrives on a later Update.
func (g *VideoPlayerScreen) Open(item playback.Item, opts playback.OpenOptions) {
	g.item = item
	g.player.Open(item, opts, func(s *playback.Session) {
		if s == nil {
			g.err = fmt.Errorf("%s: %w", item.Path, ErrOpenFailed)
			return
		}
		g.session = s
		g.restart = restartGuard{}
		g.resetTextures()
		g.showOSD()
		info := s.Info()
		g.log.WithFields(logrus.Fields{
			"path":     item.Path,
			"duration": info.Duration(),
			"video":    info.HasVideo,
			"audio":    info.HasAudio,
		}).Info("session opened")
	})
}

// Session returns the session on screen, or nil.
func (g *VideoPlayerScreen) Session() *playback.Session { return g.session }

// Update runs queued callbacks, handles input and advances the picture.
func (g *VideoPlayerScreen) Update(keyState []uint8) error {
	g.host.Drain()
	if g.err != nil {
		return g.err
	}
	if err := g.handleInput(keyState); err != nil {
		return err
	}

	s := g.session
	if s == nil {
		return nil
	}
	now := g.player.Now()
	s.UpdateForPresent(now)
	switch s.UpdateTexture(g) {
	case playback.TextureInvalid:
		if g.video != nil && !s.Info().HasVideo {
			g.resetTextures()
		}
	case playback.TexturePresent:
		g.host.InvalidateView("frame")
	}
	if s.RenderVisualizer(now) {
		g.visDirty = true
	}

	if s.State() == playback.Playing && s.HasEnded(now) {
		switch {
		case g.opts.Loop:
			if g.restart.request(s.Generation()) {
				g.player.Seek(0, false)
			}
		case g.opts.ExitOnEnd:
			return ErrEnded
		}
	}

	g.frames++
	if g.frames%statsInterval == 0 {
		g.logStats(s)
	}
	return nil
}

// restartGuard lets a looping screen queue one seek to the start per
// generation; the seek itself moves the session to a new generation.
type restartGuard struct {
	pending bool
	gen     uint32
}

func (r *restartGuard) request(gen uint32) bool {
	if r.pending && r.gen == gen {
		return false
	}
	r.pending, r.gen = true, gen
	return true
}

func (g *VideoPlayerScreen) logStats(s *playback.Session) {
	r := s.Stats()
	g.log.WithFields(logrus.Fields{
		"videoFrames": r.VideoFrames,
		"staleVideo":  r.StaleVideo,
		"avgVideoMs":  r.AvgVideoMs,
		"avgPresent":  r.AvgPresentMs,
		"dropRate":    r.DropRate,
		"healthy":     r.Healthy,
	}).Debug("playback stats")
	if !r.Healthy {
		performance.LogMemory(g.log)
	}
}

func (g *VideoPlayerScreen) handleInput(keyState []uint8) error {
	g.keys.Update(keyState, trackedKeys...)
	if g.keys.Any(trackedKeys...) {
		g.showOSD()
	}

	if g.devices.Visible() {
		switch {
		case g.keys.Pressed(sdl.SCANCODE_UP):
			g.devices.MoveSelection(-1)
		case g.keys.Pressed(sdl.SCANCODE_DOWN):
			g.devices.MoveSelection(1)
		case g.keys.Pressed(sdl.SCANCODE_RETURN):
			id := g.devices.SelectedItem().ID
			g.log.WithField("device", id).Info("audio device selected")
			g.player.SetDevice(id)
			g.devices.Hide()
		case g.keys.Any(sdl.SCANCODE_ESCAPE, sdl.SCANCODE_A):
			g.devices.Hide()
		}
		return nil
	}

	if g.keys.Any(sdl.SCANCODE_ESCAPE, sdl.SCANCODE_Q) {
		return ErrQuit
	}

	s := g.session
	if s == nil {
		return nil
	}

	if g.keys.Pressed(sdl.SCANCODE_SPACE) {
		g.player.TogglePause()
	}
	if g.keys.Pressed(sdl.SCANCODE_UP) {
		g.player.SetVolume(lo.Clamp(s.Volume()+volumeStep, 0, 1))
	}
	if g.keys.Pressed(sdl.SCANCODE_DOWN) {
		g.player.SetVolume(lo.Clamp(s.Volume()-volumeStep, 0, 1))
	}
	if g.keys.Pressed(sdl.SCANCODE_M) {
		g.player.SetMuted(!s.Muted())
	}
	if g.keys.Pressed(sdl.SCANCODE_C) {
		g.capture()
	}
	if g.keys.Pressed(sdl.SCANCODE_A) && g.opts.Devices != nil {
		current, _ := g.player.Device()
		items := menu.BuildDeviceItems(g.opts.Devices(), current)
		g.devices.Show(items, menu.IndexOf(items, current))
	}

	g.scrub(s)
	return nil
}

// scrub turns the arrow keys into seeks. A tap jumps one step; holding keeps
// stepping with the clock held until the key is released.
func (g *VideoPlayerScreen) scrub(s *playback.Session) {
	now := g.player.Now()
	dir := 0.0
	switch {
	case g.keys.Held(sdl.SCANCODE_RIGHT):
		dir = 1
	case g.keys.Held(sdl.SCANCODE_LEFT):
		dir = -1
	}

	step := func() {
		g.scrubPos = lo.Clamp(g.scrubPos+dir*g.opts.SeekStep, 0, s.EndTime())
		g.player.Seek(g.scrubPos, true)
	}

	switch {
	case g.keys.Any(sdl.SCANCODE_LEFT, sdl.SCANCODE_RIGHT):
		g.scrubbing = true
		g.scrubPos = s.Position(now)
		g.nextScrub = now + scrubDelay
		step()
	case g.scrubbing && dir != 0 && now >= g.nextScrub:
		g.nextScrub = now + scrubRepeat
		step()
	case g.scrubbing && dir == 0:
		g.scrubbing = false
		g.player.Seek(g.scrubPos, false)
	}
}

func (g *VideoPlayerScreen) capture() {
	pos := 0.0
	if s := g.session; s != nil {
		pos = s.Position(g.player.Now())
	}
	base := strings.TrimSuffix(filepath.Base(g.item.Path), filepath.Ext(g.item.Path))
	path := filepath.Join(g.opts.CaptureDir, fmt.Sprintf("%s-%08.3f.png", base, pos))

	g.player.Capture(func(img image.Image, err error) {
		if err == nil {
			err = mpeg.WriteImage(g.opts.Fs, path, img)
		}
		if err != nil {
			g.log.WithError(err).Warn("capture failed")
			return
		}
		g.log.WithField("path", path).Info("frame captured")
	})
}

func (g *VideoPlayerScreen) showOSD() { g.osdUntil = time.Now().Add(osdDuration) }

// UpdateTexture implements playback.TextureSink. The streaming texture is
// recreated when the frame size changes.
func (g *VideoPlayerScreen) UpdateTexture(width, height int, rgba []byte) error {
	if g.renderer == nil {
		return nil
	}
	if g.video == nil || g.videoW != width || g.videoH != height {
		if g.video != nil {
			g.video.Destroy()
			g.video = nil
		}
		tex, err := g.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32), sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
		if err != nil {
			return fmt.Errorf("create %dx%d texture: %w", width, height, err)
		}
		g.video, g.videoW, g.videoH = tex, width, height
	}
	return upload(g.video, width, height, rgba, width*4)
}

// upload copies tightly packed or strided RGBA rows into a streaming
// texture, honouring the texture pitch.
func upload(tex *sdl.Texture, width, height int, rgba []byte, stride int) error {
	pixels, pitch, err := tex.Lock(nil)
	if err != nil {
		return fmt.Errorf("lock texture: %w", err)
	}
	defer tex.Unlock()
	copyRows(pixels, pitch, rgba, stride, width*4, height)
	return nil
}

func copyRows(dst []byte, dstPitch int, src []byte, srcStride, rowBytes, rows int) {
	if dstPitch == srcStride && srcStride == rowBytes {
		copy(dst, src[:min(len(src), rowBytes*rows)])
		return
	}
	for y := 0; y < rows; y++ {
		so, do := y*srcStride, y*dstPitch
		if so+rowBytes > len(src) || do+rowBytes > len(dst) {
			return
		}
		copy(dst[do:do+rowBytes], src[so:so+rowBytes])
	}
}

// renderVisualizer redraws the bars into their texture at w×h.
func (g *VideoPlayerScreen) renderVisualizer(w, h int32) error {
	s := g.session
	vis := g.player.Visualizer()
	if s == nil || vis == nil || w <= 0 || h <= 0 {
		return nil
	}
	if g.visTex == nil || g.visW != w || g.visH != h {
		if g.visTex != nil {
			g.visTex.Destroy()
		}
		tex, err := g.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32), sdl.TEXTUREACCESS_STREAMING, w, h)
		if err != nil {
			g.visTex = nil
			return fmt.Errorf("create visualizer texture: %w", err)
		}
		tex.SetBlendMode(sdl.BLENDMODE_BLEND)
		g.visTex, g.visW, g.visH = tex, w, h
		g.visDirty = true
	}
	if !g.visDirty {
		return nil
	}
	g.visDirty = false

	img := visualizer.RGBA(vis.Bars(), visualizer.DefaultTheme, int(w), int(h))
	return upload(g.visTex, int(w), int(h), img.Pix, img.Stride)
}

func (g *VideoPlayerScreen) resetTextures() {
	if g.video != nil {
		g.video.Destroy()
		g.video = nil
	}
	if g.visTex != nil {
		g.visTex.Destroy()
		g.visTex = nil
	}
	g.videoW, g.videoH = 0, 0
}

// Close releases the screen textures. The player is owned by the caller.
func (g *VideoPlayerScreen) Close() {
	g.resetTextures()
	g.devices.Hide()
}
