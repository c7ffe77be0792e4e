package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/performance"
	"flow-player/screens/root"
	"flow-player/screens/videoPlayer"
)

const (
	targetFPS      = 60
	fallbackWidth  = 1280
	fallbackHeight = 720
)

var sdlLog = logrus.WithField("component", "sdl")

// limitMemory caps the Go heap, for boards where FFmpeg and the GPU driver
// share little RAM with us. mb <= 0 leaves the runtime defaults.
func limitMemory(mb int) {
	if mb <= 0 {
		return
	}
	debug.SetGCPercent(25)
	debug.SetMemoryLimit(int64(mb) << 20)
	sdlLog.WithFields(logrus.Fields{
		"limitMB":  mb,
		"pressure": performance.PressureFor(performance.SystemMemory().AvailableMB),
	}).Info("memory limit set")
}

// videoDrivers lists the drivers to try in order. SDL_VIDEODRIVER wins.
func videoDrivers() []string {
	if env := os.Getenv("SDL_VIDEODRIVER"); env != "" {
		return []string{env, "kmsdrm", "x11", "dummy"}
	}
	if runtime.GOOS == "darwin" {
		return []string{"cocoa", "dummy"}
	}
	return []string{"x11", "wayland", "kmsdrm", "fbcon", "dummy"}
}

// initializeSDL2 brings up video and audio, falling back through drivers.
func initializeSDL2() error {
	for _, driver := range videoDrivers() {
		if err := trySDLInitialization(driver); err != nil {
			sdlLog.WithError(err).WithField("driver", driver).Debug("video driver failed")
			continue
		}
		sdlLog.WithField("driver", driver).Info("SDL initialized")
		return nil
	}
	return errors.New("all SDL video drivers failed")
}

func trySDLInitialization(driver string) error {
	sdl.Quit()

	sdl.SetHint(sdl.HINT_VIDEODRIVER, driver)
	switch driver {
	case "kmsdrm":
		sdl.SetHint("SDL_KMSDRM_REQUIRE_DRM_MASTER", "1")
		sdl.SetHint(sdl.HINT_RENDER_VSYNC, "1")
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "opengles2")
	case "fbcon":
		sdl.SetHint("SDL_FBDEV", "/dev/fb0")
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "software")
	case "wayland":
		sdl.SetHint("SDL_VIDEO_WAYLAND_WMCLASS", "flow-player")
	case "cocoa":
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "opengl")
	}
	sdl.SetHint(sdl.HINT_RENDER_BATCHING, "1")
	sdl.SetHint(sdl.HINT_VIDEO_MINIMIZE_ON_FOCUS_LOSS, "0")
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "linear")

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("SDL_INIT_VIDEO: %w", err)
	}
	if _, err := sdl.GetCurrentVideoDriver(); err != nil {
		return fmt.Errorf("video driver: %w", err)
	}
	// Audio is optional: the player keeps time off the wall clock without it.
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		sdlLog.WithError(err).Warn("audio subsystem unavailable")
	}
	return nil
}

// windowSize returns the size for a window of the given mode.
func windowSize(fullscreen bool) (int32, int32) {
	mode, err := sdl.GetCurrentDisplayMode(0)
	if err != nil {
		sdlLog.WithError(err).Warn("display mode unknown, using fallback size")
		return fallbackWidth, fallbackHeight
	}
	logDisplayInfo()
	if fullscreen {
		return mode.W, mode.H
	}
	return min(mode.W*3/4, fallbackWidth), min(mode.H*3/4, fallbackHeight)
}

func logDisplayInfo() {
	n, err := sdl.GetNumVideoDisplays()
	if err != nil {
		return
	}
	for i := 0; i < n; i++ {
		mode, err := sdl.GetCurrentDisplayMode(i)
		if err != nil {
			continue
		}
		name, _ := sdl.GetDisplayName(i)
		sdlLog.WithFields(logrus.Fields{
			"display": i,
			"name":    name,
			"size":    fmt.Sprintf("%dx%d", mode.W, mode.H),
			"hz":      mode.RefreshRate,
		}).Debug("display")
	}
}

func createWindow(title string, fullscreen bool) (*sdl.Window, error) {
	w, h := windowSize(fullscreen)
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	if fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	return sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, w, h, flags)
}

// createRenderer prefers an accelerated vsync renderer and falls back to
// software.
func createRenderer(window *sdl.Window) (*sdl.Renderer, error) {
	driver, _ := sdl.GetCurrentVideoDriver()

	flags := uint32(sdl.RENDERER_ACCELERATED | sdl.RENDERER_PRESENTVSYNC)
	if driver == "kmsdrm" {
		// Async flips fail on VC4; vsync comes from the hint instead.
		flags = sdl.RENDERER_ACCELERATED
	}
	renderer, err := sdl.CreateRenderer(window, -1, flags)
	if err != nil {
		sdlLog.WithError(err).WithField("driver", driver).Warn("accelerated renderer failed, using software")
		renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_SOFTWARE)
		if err != nil {
			return nil, err
		}
	}
	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	return renderer, nil
}

// runGameLoop pumps events, updates and draws at up to targetFPS until the
// window closes or the screen asks to stop. ErrQuit and ErrEnded are normal
// exits.
func runGameLoop(rs *root.RootScreen) error {
	frameTime := time.Second / targetFPS
	for {
		start := time.Now()
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			if !rs.HandleEvent(event) {
				return nil
			}
		}

		if err := rs.Update(); err != nil {
			if errors.Is(err, videoPlayer.ErrQuit) || errors.Is(err, videoPlayer.ErrEnded) {
				return nil
			}
			return err
		}
		if err := rs.Draw(); err != nil {
			return err
		}

		if elapsed := time.Since(start); elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
	}
}
