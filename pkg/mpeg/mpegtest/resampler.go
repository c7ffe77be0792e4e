package mpegtest

import (
	"sync/atomic"

	"flow-player/pkg/audio"
	"flow-player/pkg/mpeg"
)

// Resampler turns synthetic audio frames into constant samples of the
// target length and counts flushes.
type Resampler struct {
	Level   int16
	Flushes atomic.Int32
	Frames  atomic.Int32
	Closed  atomic.Bool
}

func (r *Resampler) Resample(f *mpeg.Frame, buf *audio.Buffer) error {
	p, ok := f.Native.(AudioPayload)
	if !ok {
		return mpeg.ErrNotSupported
	}
	format := buf.Format()
	n := p.Samples
	if f.SampleRate > 0 {
		n = p.Samples * format.SampleRate / f.SampleRate
	}
	samples := make([]int16, n*format.Channels)
	for i := range samples {
		samples[i] = r.Level
	}
	buf.Write(samples, f.Seconds)
	r.Frames.Add(1)
	return nil
}

func (r *Resampler) Flush() { r.Flushes.Add(1) }

func (r *Resampler) Close() { r.Closed.Store(true) }
