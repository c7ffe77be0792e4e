package playback

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"flow-player/pkg/mpeg"
	"flow-player/pkg/performance"
	"flow-player/pkg/queue"
	"flow-player/pkg/visualizer"
)

const (
	// maxIterations caps every process loop so workers return to their
	// wait even under sustained pressure.
	maxIterations = 256
	// maxQueuedPackets stops the reader when one stream's consumer stalls
	// while the other still asks for data.
	maxQueuedPackets = 256
	// resumeMargin keeps a saved position from resuming right at either end.
	resumeMargin = 2.0
	// maxAudioBuffered is how far the playback buffer runs ahead.
	maxAudioBuffered = 1.0
	// eofSilence is appended after the last audio frame.
	eofSilence = 1.0
	// timeEpsilon treats frame times this close as the same frame.
	timeEpsilon = 1e-6
	// syncTimeout anchors the clock to the wall when no audio clock shows up.
	syncTimeout = 0.5

	statsWindow = 120
)

// SessionConfig holds the collaborators of a session.
type SessionConfig struct {
	Backend mpeg.Backend
	Host    Host
	Clock   Clock
	// Visualizer is optional. It is cleared on every seek.
	Visualizer *visualizer.Visualizer
	Log        *logrus.Entry
}

type audioClock struct {
	wall       float64
	media      float64
	generation uint32
	valid      bool
}

type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Session plays one file. It owns the decoder and the four queues between
// the reader, the decode workers and the UI tick.
type Session struct {
	id      string
	log     *logrus.Entry
	backend mpeg.Backend
	host    Host
	clock   Clock
	vis     *visualizer.Visualizer
	stats   *performance.Stats

	item Item
	opts OpenOptions

	// decoderMu is shared by the reader and both decode workers and held
	// exclusively by open, seek and close.
	decoderMu sync.RWMutex
	decoder   *mpeg.Decoder
	info      mpeg.MediaInfo

	previewMu sync.Mutex
	preview   *mpeg.Decoder

	videoPackets *queue.Queue[*mpeg.Packet]
	audioPackets *queue.Queue[*mpeg.Packet]
	videoFrames  *queue.Queue[*mpeg.Frame]
	audioFrames  *queue.Queue[*mpeg.Frame]

	state         atomic.Int32
	generation    atomic.Uint32
	scrubbing     atomic.Bool
	seekRequested atomic.Bool
	videoEnded    atomic.Bool
	audioEnded    atomic.Bool
	muted         atomic.Bool

	volume          atomicFloat
	endTime         atomicFloat
	audioBufferTime atomicFloat
	lastFrameTime   atomicFloat

	// Reader goroutine only.
	readGeneration uint32
	eofQueued      bool

	clockMu     sync.Mutex
	timeOffset  float64
	frozen      float64
	anchor      float64
	skipBefore  float64
	pendingSync bool
	syncSince   float64
	published   audioClock

	presentMu sync.Mutex
	current   *mpeg.Frame
	uploaded  *mpeg.Frame
}

// NewSession creates a detached session.
func NewSession(cfg SessionConfig) *Session {
	id := uuid.NewString()
	log := cfg.Log
	if log == nil {
		log = logrus.WithField("component", "session")
	}
	host := cfg.Host
	if host == nil {
		host = nopHost{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = WallClock()
	}

	s := &Session{
		id:           id,
		log:          log.WithField("session", id),
		backend:      cfg.Backend,
		host:         host,
		clock:        clock,
		vis:          cfg.Visualizer,
		stats:        performance.NewStats(statsWindow),
		videoPackets: queue.New[*mpeg.Packet](),
		audioPackets: queue.New[*mpeg.Packet](),
		videoFrames:  queue.New[*mpeg.Frame](),
		audioFrames:  queue.New[*mpeg.Frame](),
	}
	s.volume.Store(1)
	return s
}

// ID is a unique id used in log lines.
func (s *Session) ID() string { return s.id }

// Item returns the item the session was opened with.
func (s *Session) Item() Item { return s.item }

func (s *Session) State() State { return State(s.state.Load()) }

// Generation is the current seek generation. It is 1 after open.
func (s *Session) Generation() uint32 { return s.generation.Load() }

func (s *Session) active() bool {
	st := s.State()
	return st == Playing || st == Paused
}

// Open opens item and prepares the queues. On failure the session stays
// detached and holds no resources.
func (s *Session) Open(item Item, opts OpenOptions) bool {
	if s.State() != Detached {
		return false
	}
	log := s.log.WithField("path", item.Path)

	s.decoderMu.Lock()
	dec := mpeg.NewDecoder(s.backend, s.log.WithField("component", "decoder"))
	if !dec.Open(item.Path) {
		s.decoderMu.Unlock()
		log.Warn("session open failed")
		return false
	}
	if !dec.InitStreams(opts.VideoTrack, opts.AudioTrack, opts.AllowHW, false) {
		dec.Close()
		s.decoderMu.Unlock()
		log.Warn("session has no playable streams")
		return false
	}
	s.decoder = dec
	s.info = dec.Info()
	s.item = item
	s.opts = opts
	s.generation.Store(1)
	s.readGeneration = 1
	s.eofQueued = false
	s.clearQueues()
	s.decoderMu.Unlock()

	s.endTime.Store(s.info.EndTime)
	s.lastFrameTime.Store(0)
	s.audioBufferTime.Store(0)

	start := 0.0
	if opts.UseLastPosition && resumable(item.LastPosition, s.info.EndTime) {
		start = item.LastPosition
	}

	now := s.clock()
	s.clockMu.Lock()
	s.timeOffset = now
	s.frozen = 0
	s.anchor = 0
	s.skipBefore = 0
	s.pendingSync = true
	s.syncSince = now
	s.published = audioClock{}
	if opts.AutoPlay {
		s.state.Store(int32(Playing))
	} else {
		s.state.Store(int32(Paused))
	}
	s.clockMu.Unlock()

	if start > 0 {
		s.Seek(start, false)
	}

	log.WithFields(logrus.Fields{
		"duration": s.info.EndTime,
		"video":    s.info.HasVideo,
		"audio":    s.info.HasAudio,
		"start":    start,
		"state":    s.State().String(),
	}).Info("session opened")
	s.host.InvalidateView("open")
	return true
}

func resumable(pos, end float64) bool {
	return pos > resumeMargin && pos < end-resumeMargin
}

func (s *Session) clearQueues() {
	s.videoPackets.Clear()
	s.audioPackets.Clear()
	s.videoFrames.Clear()
	s.audioFrames.Clear()
}

// Close stops playback and releases the decoder. Workers still inside a
// process loop leave it on their next iteration.
func (s *Session) Close() {
	if State(s.state.Swap(int32(Closed))) == Closed {
		return
	}

	s.decoderMu.Lock()
	s.clearQueues()
	if s.decoder != nil {
		s.decoder.Close()
	}
	s.decoderMu.Unlock()

	s.previewMu.Lock()
	if s.preview != nil {
		s.preview.Close()
		s.preview = nil
	}
	s.previewMu.Unlock()

	s.presentMu.Lock()
	if s.current != nil {
		s.current.Release()
		s.current = nil
	}
	s.uploaded = nil
	s.presentMu.Unlock()

	r := s.stats.Report()
	s.log.WithFields(logrus.Fields{
		"presented": r.Presented,
		"stale":     r.StaleVideo + r.StaleAudio,
		"seeks":     r.Seeks,
	}).Info("session closed")
}

// Seek moves playback to pos seconds. The decoder seek itself happens on the
// next ProcessIO. While scrubbing the clock stays at pos and audio is held.
func (s *Session) Seek(pos float64, scrubbing bool) bool {
	if !s.active() {
		return false
	}
	pos = lo.Clamp(pos, 0, s.EndTime())
	now := s.clock()

	s.clockMu.Lock()
	gen := s.generation.Add(1)
	s.scrubbing.Store(scrubbing)
	s.anchor = pos
	s.frozen = pos
	s.skipBefore = pos
	s.pendingSync = true
	s.syncSince = now
	s.clockMu.Unlock()

	s.videoEnded.Store(false)
	s.audioEnded.Store(false)
	s.seekRequested.Store(true)
	s.stats.RecordSeek()

	s.log.WithFields(logrus.Fields{
		"position":   pos,
		"generation": gen,
		"scrubbing":  scrubbing,
	}).Debug("seek")
	s.host.InvalidateView("seek")
	return true
}

// Scrubbing reports whether the last seek was part of a scrub.
func (s *Session) Scrubbing() bool { return s.scrubbing.Load() }

// Play resumes a paused session.
func (s *Session) Play() {
	now := s.clock()
	s.clockMu.Lock()
	if s.State() != Paused {
		s.clockMu.Unlock()
		return
	}
	switch {
	case s.pendingSync:
		s.syncSince = now
	case s.info.HasAudio:
		s.anchor = s.frozen
		s.pendingSync = true
		s.syncSince = now
	default:
		s.timeOffset = now - s.frozen
	}
	s.state.Store(int32(Playing))
	s.clockMu.Unlock()

	s.host.InvalidateView("play")
}

// Pause freezes the position.
func (s *Session) Pause() {
	now := s.clock()
	s.clockMu.Lock()
	if s.State() != Playing {
		s.clockMu.Unlock()
		return
	}
	s.frozen = s.positionLocked(now)
	s.state.Store(int32(Paused))
	s.clockMu.Unlock()

	s.host.InvalidateView("pause")
}

func (s *Session) TogglePause() {
	if s.State() == Playing {
		s.Pause()
		return
	}
	s.Play()
}

// Position is the media time in seconds that should be visible at now.
func (s *Session) Position(now float64) float64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.positionLocked(now)
}

func (s *Session) positionLocked(now float64) float64 {
	switch {
	case s.pendingSync:
		return s.anchor
	case s.State() != Playing:
		return s.frozen
	default:
		return math.Max(0, now-s.timeOffset)
	}
}

// HasEnded reports whether playback reached the end time.
func (s *Session) HasEnded(now float64) bool {
	return s.State() == Playing && s.Position(now) >= s.EndTime()-timeEpsilon
}

// PublishAudioClock tells the session that media time media was audible at
// wall time wall for the given generation. It only moves the clock while a
// sync is pending.
func (s *Session) PublishAudioClock(wall, media float64, generation uint32) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.published = audioClock{wall: wall, media: media, generation: generation, valid: true}
}

// resolveSync re-anchors the clock once the audio clock for the current
// generation is known, or after syncTimeout without one.
func (s *Session) resolveSync(now float64) {
	if !s.pendingSync || s.scrubbing.Load() || s.State() != Playing {
		return
	}
	p := s.published
	if s.info.HasAudio && p.valid && p.generation == s.generation.Load() && p.wall >= s.syncSince {
		s.timeOffset = p.wall - p.media
		s.pendingSync = false
		return
	}
	if now-s.syncSince >= syncTimeout {
		s.timeOffset = now - s.anchor
		s.pendingSync = false
		s.log.WithField("position", s.anchor).Debug("no audio clock, anchored to wall clock")
	}
}

// requestResync holds the position where it is until the audio clock of a
// new or reset device is known.
func (s *Session) requestResync(now float64) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.anchor = s.positionLocked(now)
	s.pendingSync = true
	s.syncSince = now
}

// PendingSync reports whether the position is held waiting for a clock.
func (s *Session) PendingSync() bool {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.pendingSync
}

func (s *Session) seekTarget() float64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.skipBefore
}

// ReportDeviceLost pauses playback after the audio output went away.
func (s *Session) ReportDeviceLost() {
	s.log.Warn("audio device lost, pausing")
	s.stats.RecordDeviceReset()
	s.Pause()
	s.host.InvalidateView("audio device lost")
}

func (s *Session) Volume() float64 { return s.volume.Load() }

func (s *Session) SetVolume(v float64) { s.volume.Store(lo.Clamp(v, 0, 1)) }

func (s *Session) Muted() bool { return s.muted.Load() }

func (s *Session) SetMuted(m bool) { s.muted.Store(m) }

// Info returns the media info of the open file.
func (s *Session) Info() mpeg.MediaInfo {
	s.decoderMu.RLock()
	defer s.decoderMu.RUnlock()
	return s.info
}

// EndTime is the media end, extended when audio runs past the container
// duration.
func (s *Session) EndTime() float64 { return s.endTime.Load() }

func (s *Session) extendEnd(t float64) {
	if t > s.endTime.Load() {
		s.endTime.Store(t)
	}
}

// AudioBufferTime is the media time up to which audio has been resampled.
func (s *Session) AudioBufferTime() float64 { return s.audioBufferTime.Load() }

// LastFrameTime is the time of the video frame currently shown.
func (s *Session) LastFrameTime() float64 { return s.lastFrameTime.Load() }

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() performance.Report { return s.stats.Report() }

// Visualizer returns the visualizer fed by this session, or nil.
func (s *Session) Visualizer() *visualizer.Visualizer { return s.vis }
