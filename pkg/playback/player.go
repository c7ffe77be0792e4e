package playback

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"flow-player/pkg/audio"
	"flow-player/pkg/mpeg"
	"flow-player/pkg/performance"
	"flow-player/pkg/visualizer"
)

const (
	readerWait = 50 * time.Millisecond
	videoWait  = 50 * time.Millisecond
	audioWait  = 100 * time.Millisecond
)

// Config wires a Player to its backend and output.
type Config struct {
	Backend mpeg.Backend
	Host    Host
	// OpenDevice creates the audio output. Without it audio is decoded and
	// discarded in step with the clock.
	OpenDevice audio.Opener
	// NewResampler is called twice: once for the device, once for the
	// visualizer.
	NewResampler func() Resampler
	DeviceID     string
	Format       audio.Format
	Visualizer   bool
	Clock        Clock
	Log          *logrus.Entry
}

// Player runs the reader, video and audio goroutines for at most one active
// session. Commands are queued and executed on the reader goroutine, which is
// the only place the active session changes.
type Player struct {
	cfg   Config
	log   *logrus.Entry
	host  Host
	clock Clock
	vis   *visualizer.Visualizer

	cmdMu    sync.Mutex
	commands []func(*Player)

	readEvent  *Event
	videoEvent *Event
	audioEvent *Event

	active atomic.Pointer[Session]

	deviceMu      sync.Mutex
	wantDevice    string
	currentDevice string
	hasDevice     bool

	cancel context.CancelFunc
	group  *errgroup.Group

	// Audio goroutine only.
	out audioOutput
}

// NewPlayer creates a stopped player. Call Start to run its goroutines.
func NewPlayer(cfg Config) *Player {
	log := cfg.Log
	if log == nil {
		log = logrus.WithField("component", "player")
	}
	host := cfg.Host
	if host == nil {
		host = nopHost{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = WallClock()
	}
	format := cfg.Format
	if !format.Valid() {
		format = audio.DefaultFormat
	}

	p := &Player{
		cfg:        cfg,
		log:        log,
		host:       host,
		clock:      clock,
		readEvent:  NewEvent(),
		videoEvent: NewEvent(),
		audioEvent: NewEvent(),
		wantDevice: cfg.DeviceID,
	}
	if cfg.Visualizer {
		p.vis = visualizer.New()
	}
	p.out.playback = AudioTarget{Buffer: audio.NewBuffer(format), Resampler: p.newResampler()}
	p.out.vis = AudioTarget{Buffer: audio.NewBuffer(format), Resampler: p.newResampler()}
	return p
}

func (p *Player) newResampler() Resampler {
	if p.cfg.NewResampler == nil {
		return nil
	}
	return p.cfg.NewResampler()
}

// Start launches the worker goroutines. They stop when ctx is done or on
// Shutdown.
func (p *Player) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(p.worker(ctx, "reader", p.readLoop))
	g.Go(p.worker(ctx, "video", p.videoLoop))
	g.Go(p.worker(ctx, "audio", p.audioLoop))
	p.group = g
	p.log.Info("player started")
}

// worker turns a panic in a loop into an error so it never crosses the
// goroutine boundary.
func (p *Player) worker(ctx context.Context, name string, loop func(context.Context)) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s worker: %v", name, r)
				p.log.WithField("worker", name).Errorf("worker stopped: %v", r)
			}
		}()
		loop(ctx)
		return nil
	}
}

// Shutdown stops the workers, closes the active session and releases the
// audio output.
func (p *Player) Shutdown() error {
	var err error
	if p.cancel != nil {
		p.cancel()
		err = p.group.Wait()
		p.cancel = nil
	}
	p.closeActive()
	p.out.close()

	p.cmdMu.Lock()
	dropped := len(p.commands)
	p.commands = nil
	p.cmdMu.Unlock()

	p.log.WithField("droppedCommands", dropped).Info("player stopped")
	return err
}

func (p *Player) readLoop(ctx context.Context) {
	for {
		p.readEvent.Wait(ctx, readerWait)
		if ctx.Err() != nil {
			return
		}
		p.runCommands()
		if s := p.active.Load(); s != nil {
			s.ProcessIO(p.videoEvent, p.audioEvent)
		}
	}
}

func (p *Player) videoLoop(ctx context.Context) {
	for {
		p.videoEvent.Wait(ctx, videoWait)
		if ctx.Err() != nil {
			return
		}
		if s := p.active.Load(); s != nil {
			s.ProcessVideo(p.readEvent)
		}
	}
}

func (p *Player) audioLoop(ctx context.Context) {
	for {
		p.audioEvent.Wait(ctx, audioWait)
		if ctx.Err() != nil {
			return
		}
		p.audioTick()
	}
}

// Queue appends a command for the reader goroutine and wakes it.
func (p *Player) Queue(fn func(*Player)) {
	p.cmdMu.Lock()
	p.commands = append(p.commands, fn)
	p.cmdMu.Unlock()
	p.readEvent.Set()
}

func (p *Player) runCommands() {
	p.cmdMu.Lock()
	cmds := p.commands
	p.commands = nil
	p.cmdMu.Unlock()

	for _, fn := range cmds {
		fn(p)
	}
}

// Open closes the active session and opens item in a new one. done runs on
// the UI thread with the session, or nil when the file could not be opened.
func (p *Player) Open(item Item, opts OpenOptions, done func(*Session)) {
	p.Queue(func(p *Player) {
		p.closeActive()

		s := NewSession(SessionConfig{
			Backend:    p.cfg.Backend,
			Host:       p.host,
			Clock:      p.clock,
			Visualizer: p.vis,
			Log:        p.log,
		})
		if s.Open(item, opts) {
			p.active.Store(s)
			p.videoEvent.Set()
			p.audioEvent.Set()
			performance.LogMemory(p.log)
		} else {
			s = nil
		}
		if done != nil {
			p.host.QueueUI(func() { done(s) })
		}
	})
}

// Close closes the active session.
func (p *Player) Close() {
	p.Queue(func(p *Player) { p.closeActive() })
}

func (p *Player) closeActive() {
	if s := p.active.Swap(nil); s != nil {
		s.Close()
	}
}

// withActive queues fn against the session active when the command runs.
func (p *Player) withActive(fn func(*Session)) {
	p.Queue(func(p *Player) {
		if s := p.active.Load(); s != nil {
			fn(s)
		}
	})
}

func (p *Player) Seek(pos float64, scrubbing bool) {
	p.withActive(func(s *Session) { s.Seek(pos, scrubbing) })
}

func (p *Player) Play() { p.withActive((*Session).Play) }

func (p *Player) Pause() { p.withActive((*Session).Pause) }

func (p *Player) TogglePause() { p.withActive((*Session).TogglePause) }

func (p *Player) SetVolume(v float64) {
	p.withActive(func(s *Session) { s.SetVolume(v) })
}

func (p *Player) SetMuted(m bool) {
	p.withActive(func(s *Session) { s.SetMuted(m) })
}

// Capture renders the frame on screen and hands it to done on the UI thread.
func (p *Player) Capture(done func(image.Image, error)) {
	p.Queue(func(p *Player) {
		var img image.Image
		err := fmt.Errorf("capture: %w", mpeg.ErrClosed)
		if s := p.active.Load(); s != nil {
			img, err = s.CaptureCurrentFrame()
		}
		p.host.QueueUI(func() { done(img, err) })
	})
}

// SetDevice switches the audio output. The audio goroutine reopens on its
// next tick.
func (p *Player) SetDevice(id string) {
	p.deviceMu.Lock()
	p.wantDevice = id
	p.deviceMu.Unlock()
	p.audioEvent.Set()
}

// Device returns the id of the open audio output and whether one is open.
func (p *Player) Device() (string, bool) {
	p.deviceMu.Lock()
	defer p.deviceMu.Unlock()
	return p.currentDevice, p.hasDevice
}

func (p *Player) wantedDevice() string {
	p.deviceMu.Lock()
	defer p.deviceMu.Unlock()
	return p.wantDevice
}

func (p *Player) setDevice(id string, open bool) {
	p.deviceMu.Lock()
	defer p.deviceMu.Unlock()
	p.currentDevice = id
	p.hasDevice = open
}

// Active returns the session the workers are servicing, or nil.
func (p *Player) Active() *Session { return p.active.Load() }

// Now is the player clock, the time base UpdateForPresent expects.
func (p *Player) Now() float64 { return p.clock() }

// Visualizer returns the shared visualizer, or nil when disabled.
func (p *Player) Visualizer() *visualizer.Visualizer { return p.vis }
