package videoPlayer

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/input"
	"flow-player/pkg/playback"
	"flow-player/ui"
	"flow-player/widgets/menu"
)

var (
	// ErrQuit is returned by Update when the user asked to leave.
	ErrQuit = errors.New("quit requested")
	// ErrEnded is returned by Update at the end of the file when ExitOnEnd
	// is set.
	ErrEnded = errors.New("playback ended")
	// ErrOpenFailed is returned by Update when the file could not be opened.
	ErrOpenFailed = errors.New("open failed")
)

// Options tune the screen behaviour.
type Options struct {
	Loop      bool
	ExitOnEnd bool
	// SeekStep is the arrow key jump in seconds.
	SeekStep float64
	// CaptureDir receives frame captures.
	CaptureDir string
	Fs         afero.Fs
	// Devices lists audio outputs for the device menu.
	Devices func() []string
}

// VideoPlayerScreen draws the active session and turns keys into player
// commands. All methods run on the SDL thread.
type VideoPlayerScreen struct {
	log    *logrus.Entry
	opts   Options
	host   *Host
	player *playback.Player
	fonts  *ui.Fonts
	err    error

	session *playback.Session
	item    playback.Item

	renderer *sdl.Renderer
	video    *sdl.Texture
	videoW   int
	videoH   int

	visTex   *sdl.Texture
	visW     int32
	visH     int32
	visDirty bool

	screenW int32
	screenH int32

	keys     input.Keys
	devices  *menu.Widget
	osdUntil time.Time

	scrubbing bool
	scrubPos  float64
	nextScrub float64

	restart restartGuard
	frames  int
}
