package playback

import (
	"errors"

	"github.com/sirupsen/logrus"

	"flow-player/pkg/audio"
)

const (
	// feedAhead is how much audio is kept queued in the device.
	feedAhead = 0.3
	// deviceRetry is the wait before reopening a device that failed to open.
	deviceRetry = 1.0
)

// audioOutput is the state owned by the audio goroutine.
type audioOutput struct {
	session   *Session
	device    audio.Device
	paused    bool
	deviceGen uint32
	fedGen    uint32
	retryAt   float64
	playback  AudioTarget
	vis       AudioTarget
	scratch   []int16
}

func (o *audioOutput) closeDevice() {
	if o.device != nil {
		o.device.Close()
		o.device = nil
	}
	o.fedGen = 0
}

func (o *audioOutput) close() {
	o.closeDevice()
	for _, t := range []*AudioTarget{&o.playback, &o.vis} {
		if t.Resampler != nil {
			t.Resampler.Close()
		}
	}
	o.session = nil
}

// audioTick is one iteration of the audio goroutine: keep the device in
// shape, decode and resample, feed the device and the visualizer.
func (p *Player) audioTick() {
	o := &p.out
	s := p.active.Load()
	if s != o.session {
		o.session = s
		o.playback.Buffer.Reset(0)
		o.vis.Buffer.Reset(0)
		if o.device != nil {
			o.device.Clear()
		}
	}

	p.manageDevice(s)
	if s == nil {
		return
	}

	s.ProcessAudio(&o.playback, p.visTarget(), p.readEvent)

	if gen := o.playback.Buffer.Generation(); o.device != nil && gen != o.deviceGen {
		o.device.Clear()
		o.deviceGen = gen
	}

	hold := s.State() != Playing || s.Scrubbing()
	switch {
	case o.device != nil:
		if hold != o.paused {
			o.device.Pause(hold)
			o.paused = hold
		}
		if !hold {
			p.feedDevice(s)
		}
	case !hold:
		p.discardBehind(s)
	}

	if p.vis != nil {
		p.vis.Update(o.vis.Buffer)
	}
}

func (p *Player) visTarget() *AudioTarget {
	if p.vis == nil {
		return nil
	}
	return &p.out.vis
}

// manageDevice closes a lost or replaced device and opens the wanted one.
// A lost device pauses the session; the replacement is opened on the next
// tick.
func (p *Player) manageDevice(s *Session) {
	o := &p.out
	want := p.wantedDevice()

	if o.device != nil && o.device.Lost() {
		p.log.WithField("device", o.device.ID()).Warn("audio device lost")
		o.closeDevice()
		p.setDevice("", false)
		if s != nil {
			s.ReportDeviceLost()
			s.requestResync(p.clock())
		}
		p.audioEvent.Set()
		return
	}
	if o.device != nil && o.device.ID() != want {
		p.log.WithFields(logrus.Fields{"from": o.device.ID(), "to": want}).Info("switching audio device")
		o.closeDevice()
		p.setDevice("", false)
		if s != nil {
			s.requestResync(p.clock())
		}
	}
	if o.device != nil || s == nil || !s.info.HasAudio || p.cfg.OpenDevice == nil {
		return
	}
	if now := p.clock(); now < o.retryAt {
		return
	}

	dev, err := p.cfg.OpenDevice(want, o.playback.Buffer.Format())
	if err != nil {
		p.log.WithError(err).WithField("device", want).Warn("audio device open failed")
		o.retryAt = p.clock() + deviceRetry
		return
	}
	dev.Pause(true)
	o.device = dev
	o.paused = true
	o.deviceGen = o.playback.Buffer.Generation()
	p.setDevice(dev.ID(), true)

	if format := dev.Format(); format != o.playback.Buffer.Format() {
		for _, t := range []*AudioTarget{&o.playback, &o.vis} {
			t.Buffer.SetFormat(format)
			t.Buffer.Reset(0)
		}
		s.requestResync(p.clock())
	}
}

// feedDevice keeps feedAhead seconds queued and publishes the audio clock.
func (p *Player) feedDevice(s *Session) {
	o := &p.out
	buf := o.playback.Buffer
	gen := buf.Generation()
	if gen != s.Generation() {
		return
	}

	format := o.device.Format()
	if frames := format.Frames(feedAhead - o.device.Delay()); frames > 0 {
		n := frames * format.Channels
		if cap(o.scratch) < n {
			o.scratch = make([]int16, n)
		}
		samples := o.scratch[:n]
		if got := buf.Read(samples); got > 0 {
			audio.ApplyVolume(samples[:got], s.Volume(), s.Muted())
			if err := o.device.Write(samples[:got]); err != nil {
				if !errors.Is(err, audio.ErrDeviceLost) {
					p.log.WithError(err).Debug("audio write failed")
				}
				return
			}
			o.fedGen = gen
		}
	}
	if o.fedGen == gen {
		s.PublishAudioClock(p.clock(), buf.StartTime()-o.device.Delay(), gen)
	}
}

// discardBehind drops samples the clock has passed when there is no device
// to play them.
func (p *Player) discardBehind(s *Session) {
	buf := p.out.playback.Buffer
	if buf.Generation() != s.Generation() || buf.Available() == 0 {
		return
	}
	if lead := s.Position(p.clock()) - buf.StartTime(); lead > 0 {
		buf.Skip(buf.Format().Frames(lead))
	}
}
