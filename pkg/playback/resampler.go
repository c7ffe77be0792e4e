package playback

import (
	"flow-player/pkg/audio"
	"flow-player/pkg/mpeg"
)

// Resampler converts decoded audio frames into a buffer's format.
type Resampler interface {
	Resample(f *mpeg.Frame, buf *audio.Buffer) error
	// Flush drops filter state so samples from before a seek never reach
	// the output.
	Flush()
	Close()
}

// AudioTarget is one consumer of decoded audio: a ring buffer and the
// resampler that feeds it. The buffer's generation is the seek generation the
// pair was last synchronised to.
type AudioTarget struct {
	Buffer    *audio.Buffer
	Resampler Resampler
}

// sync flushes the resampler and empties the buffer when it still belongs to
// an older generation. It reports whether anything was reset.
func (t *AudioTarget) sync(generation uint32) bool {
	if t == nil || t.Buffer == nil || t.Buffer.Generation() == generation {
		return false
	}
	if t.Resampler != nil {
		t.Resampler.Flush()
	}
	t.Buffer.Reset(generation)
	return true
}

func (t *AudioTarget) resample(f *mpeg.Frame) error {
	if t == nil || t.Buffer == nil || t.Resampler == nil {
		return nil
	}
	return t.Resampler.Resample(f, t.Buffer)
}

func (t *AudioTarget) appendSilence(seconds, at float64) {
	if t == nil || t.Buffer == nil {
		return
	}
	start := at
	if t.Buffer.Available() > 0 {
		start = t.Buffer.EndTime()
	}
	t.Buffer.AppendSilence(seconds, start)
}

// trimBefore drops buffered samples that play before at.
func (t *AudioTarget) trimBefore(at float64) {
	if t == nil || t.Buffer == nil {
		return
	}
	if lead := at - t.Buffer.StartTime(); lead > 0 {
		t.Buffer.Skip(t.Buffer.Format().Frames(lead))
	}
}
