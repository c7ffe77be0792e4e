package ffmpeg

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/asticode/go-astiav"

	"flow-player/pkg/audio"
	"flow-player/pkg/mpeg"
)

// Resampler converts decoded audio frames into the interleaved S16 layout of
// an audio.Buffer using libswresample.
type Resampler struct {
	swr *astiav.SoftwareResampleContext
	out *astiav.Frame
}

// NewResampler allocates a resampler. The conversion is configured from the
// first frame and the target buffer.
func NewResampler() *Resampler {
	return &Resampler{swr: astiav.AllocSoftwareResampleContext(), out: astiav.AllocFrame()}
}

func channelLayout(channels int) astiav.ChannelLayout {
	if channels == 1 {
		return astiav.ChannelLayoutMono
	}
	return astiav.ChannelLayoutStereo
}

// Resample converts f and appends the result to buf.
func (r *Resampler) Resample(f *mpeg.Frame, buf *audio.Buffer) error {
	if r.swr == nil {
		return mpeg.ErrClosed
	}
	src, ok := f.Native.(*astiav.Frame)
	if !ok || src == nil {
		return fmt.Errorf("ffmpeg: audio frame without native data: %w", mpeg.ErrNotSupported)
	}
	format := buf.Format()
	if !format.Valid() || src.SampleRate() <= 0 {
		return fmt.Errorf("ffmpeg: resample to %+v: %w", format, mpeg.ErrNotSupported)
	}

	r.out.Unref()
	r.out.SetSampleFormat(astiav.SampleFormatS16)
	r.out.SetSampleRate(format.SampleRate)
	r.out.SetChannelLayout(channelLayout(format.Channels))
	r.out.SetNbSamples(src.NbSamples()*format.SampleRate/src.SampleRate() + 256)
	if err := r.out.AllocBuffer(0); err != nil {
		return fmt.Errorf("ffmpeg: resample buffer: %w", err)
	}
	if err := r.swr.ConvertFrame(src, r.out); err != nil {
		return fmt.Errorf("ffmpeg: resample: %w", err)
	}

	channels := r.out.ChannelLayout().Channels()
	n := r.out.NbSamples() * channels
	if n == 0 {
		return nil
	}
	plane, err := r.out.Data().Bytes(0)
	if err != nil {
		return err
	}
	if len(plane) < n*2 {
		return errors.New("ffmpeg: short resample plane")
	}
	samples := unsafe.Slice((*int16)(unsafe.Pointer(&plane[0])), n)
	buf.Write(samples, f.Seconds)
	return nil
}

// Flush drops samples buffered inside libswresample.
func (r *Resampler) Flush() {
	if r.swr == nil {
		return
	}
	r.swr.Free()
	r.swr = astiav.AllocSoftwareResampleContext()
}

func (r *Resampler) Close() {
	if r.swr != nil {
		r.swr.Free()
		r.swr = nil
	}
	if r.out != nil {
		r.out.Free()
		r.out = nil
	}
}
