package ffmpeg

import (
	"runtime"

	"github.com/asticode/go-astiav"
)

// hardwareDecoders lists decoder names to try, best first, before the
// software decoder for the codec. Names the local FFmpeg build lacks are
// skipped. V4L2 request/m2m decoders for H.264, HEVC and MPEG-2 are left out
// because they fail on Raspberry Pi 4 kernels.
func hardwareDecoders(id astiav.CodecID) []string {
	var linux, darwin []string
	switch id {
	case astiav.CodecIDHevc:
		linux = []string{"hevc_rkmpp", "hevc_vaapi", "hevc_nvdec", "hevc_cuvid"}
		darwin = []string{"hevc_videotoolbox"}
	case astiav.CodecIDH264:
		linux = []string{"h264_rkmpp", "h264_vaapi", "h264_nvdec", "h264_cuvid"}
		darwin = []string{"h264_videotoolbox"}
	case astiav.CodecIDVp9:
		linux = []string{"vp9_v4l2m2m", "vp9_vaapi", "vp9_cuvid"}
	case astiav.CodecIDVp8:
		linux = []string{"vp8_v4l2m2m", "vp8_vaapi", "vp8_cuvid"}
	case astiav.CodecIDAv1:
		linux = []string{"av1_v4l2m2m", "av1_vaapi", "av1_cuvid"}
	case astiav.CodecIDMpeg2Video:
		linux = []string{"mpeg2_vaapi", "mpeg2_cuvid"}
	case astiav.CodecIDMpeg4:
		linux = []string{"mpeg4_v4l2m2m", "mpeg4_vaapi", "mpeg4_cuvid"}
	}

	switch runtime.GOOS {
	case "linux":
		return linux
	case "darwin":
		return darwin
	}
	return nil
}

// decoderCandidates is the ordered list of decoders to try for a stream.
// preferred, when set and matching the codec, goes first. The software
// decoder is always last.
func decoderCandidates(id astiav.CodecID, preferred string, allowHW bool) []*astiav.Codec {
	var out []*astiav.Codec
	seen := map[string]bool{}
	add := func(c *astiav.Codec) {
		if c == nil || c.ID() != id || seen[c.Name()] {
			return
		}
		seen[c.Name()] = true
		out = append(out, c)
	}

	if allowHW {
		if preferred != "" {
			add(astiav.FindDecoderByName(preferred))
		}
		for _, name := range hardwareDecoders(id) {
			add(astiav.FindDecoderByName(name))
		}
	}
	add(astiav.FindDecoder(id))
	return out
}

// HardwareDecoders lists the hardware decoders this FFmpeg build offers for
// the codec, best first.
func (b *Backend) HardwareDecoders(codecID int) []string {
	var out []string
	for _, name := range hardwareDecoders(astiav.CodecID(codecID)) {
		if astiav.FindDecoderByName(name) != nil {
			out = append(out, name)
		}
	}
	return out
}
