package playback

import (
	"errors"
	"sync"

	"flow-player/pkg/audio"
	"flow-player/pkg/mpeg/mpegtest"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 2}

type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeHost struct {
	mu          sync.Mutex
	invalidated []string
}

func (h *fakeHost) InvalidateView(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated = append(h.invalidated, reason)
}

func (h *fakeHost) QueueUI(fn func()) { fn() }

type fakeSink struct {
	uploads int
	width   int
	height  int
	fail    bool
}

func (s *fakeSink) UpdateTexture(width, height int, rgba []byte) error {
	if s.fail {
		return errors.New("texture lost")
	}
	s.uploads++
	s.width, s.height = width, height
	return nil
}

type fakeDevice struct {
	mu      sync.Mutex
	id      string
	format  audio.Format
	queued  int
	written int
	paused  bool
	clears  int
	lost    bool
	closed  bool
}

func (d *fakeDevice) ID() string           { return d.id }
func (d *fakeDevice) Format() audio.Format { return d.format }

func (d *fakeDevice) Write(samples []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost || d.closed {
		return audio.ErrDeviceLost
	}
	d.queued += len(samples) / d.format.Channels
	d.written += len(samples) / d.format.Channels
	return nil
}

func (d *fakeDevice) Delay() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format.Seconds(d.queued)
}

// play consumes seconds of queued audio as the hardware would.
func (d *fakeDevice) play(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = max(0, d.queued-d.format.Frames(seconds))
}

func (d *fakeDevice) Pause(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
}

func (d *fakeDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = 0
	d.clears++
}

func (d *fakeDevice) Lost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func (d *fakeDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *fakeDevice) setLost() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
}

// fakeOpener hands out a new fakeDevice per call and remembers them.
type fakeOpener struct {
	mu      sync.Mutex
	devices []*fakeDevice
	fail    bool
}

func (o *fakeOpener) Open(id string, format audio.Format) (audio.Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return nil, errors.New("no audio hardware")
	}
	d := &fakeDevice{id: id, format: format}
	o.devices = append(o.devices, d)
	return d, nil
}

func (o *fakeOpener) last() *fakeDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.devices) == 0 {
		return nil
	}
	return o.devices[len(o.devices)-1]
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.devices)
}

// testTargets returns a playback and a visualizer target backed by counting
// resamplers.
func testTargets() (*AudioTarget, *AudioTarget, *mpegtest.Resampler, *mpegtest.Resampler) {
	pr := &mpegtest.Resampler{Level: 1000}
	vr := &mpegtest.Resampler{Level: 1000}
	return &AudioTarget{Buffer: audio.NewBuffer(testFormat), Resampler: pr},
		&AudioTarget{Buffer: audio.NewBuffer(testFormat), Resampler: vr},
		pr, vr
}

func videoOnly(duration float64) mpegtest.File {
	f := mpegtest.AV(duration)
	f.Audio = false
	return f
}
