package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// rgbaScaler converts decoded pictures of any pixel format into tightly
// packed RGBA. The context is rebuilt whenever the source geometry changes.
type rgbaScaler struct {
	ssc    *astiav.SoftwareScaleContext
	dst    *astiav.Frame
	w, h   int
	srcPix astiav.PixelFormat
}

func (s *rgbaScaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *rgbaScaler) ensure(src *astiav.Frame) error {
	w, h, pix := src.Width(), src.Height(), src.PixelFormat()
	if s.ssc != nil && w == s.w && h == s.h && pix == s.srcPix {
		return nil
	}
	s.close()

	ssc, err := astiav.CreateSoftwareScaleContext(w, h, pix, w, h, astiav.PixelFormatRgba,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
	if err != nil {
		return fmt.Errorf("ffmpeg: scale context %dx%d %s: %w", w, h, pix, err)
	}
	dst := astiav.AllocFrame()
	dst.SetWidth(w)
	dst.SetHeight(h)
	dst.SetPixelFormat(astiav.PixelFormatRgba)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("ffmpeg: rgba buffer: %w", err)
	}

	s.ssc, s.dst = ssc, dst
	s.w, s.h, s.srcPix = w, h, pix
	return nil
}

func (s *rgbaScaler) toRGBA(src *astiav.Frame) (int, int, []byte, error) {
	if err := s.ensure(src); err != nil {
		return 0, 0, nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return 0, 0, nil, fmt.Errorf("ffmpeg: scale: %w", err)
	}
	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return 0, 0, nil, err
	}
	out := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(out, 1); err != nil {
		return 0, 0, nil, err
	}
	return s.w, s.h, out, nil
}
