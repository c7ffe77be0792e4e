package video

import (
	"fmt"
	"path/filepath"
	"strings"

	"flow-player/pkg/mpeg"
)

// Family groups codec names that share decoder support.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyMPEG1
	FamilyMPEG2
	FamilyMPEG4
	FamilyH264
	FamilyHEVC
	FamilyVP8
	FamilyVP9
	FamilyAV1
)

// DetectFamily maps a codec or decoder name to its family.
func DetectFamily(codecName string) Family {
	lower := strings.ToLower(codecName)

	switch {
	case strings.Contains(lower, "h264"), strings.Contains(lower, "avc"):
		return FamilyH264
	case strings.Contains(lower, "h265"), strings.Contains(lower, "hevc"):
		return FamilyHEVC
	case strings.Contains(lower, "mpeg1"):
		return FamilyMPEG1
	case strings.Contains(lower, "mpeg2"):
		return FamilyMPEG2
	case strings.Contains(lower, "mpeg4"):
		return FamilyMPEG4
	case strings.Contains(lower, "vp8"):
		return FamilyVP8
	case strings.Contains(lower, "vp9"):
		return FamilyVP9
	case strings.Contains(lower, "av1"):
		return FamilyAV1
	default:
		return FamilyUnknown
	}
}

func (f Family) String() string {
	switch f {
	case FamilyMPEG1:
		return "MPEG-1"
	case FamilyMPEG2:
		return "MPEG-2"
	case FamilyMPEG4:
		return "MPEG-4"
	case FamilyH264:
		return "H.264/AVC"
	case FamilyHEVC:
		return "H.265/HEVC"
	case FamilyVP8:
		return "VP8"
	case FamilyVP9:
		return "VP9"
	case FamilyAV1:
		return "AV1"
	default:
		return "unknown"
	}
}

func (f Family) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Advice says whether a video stream will decode in hardware here and, when
// not, how to transcode it so it does.
type Advice struct {
	Stream    int      `json:"stream"`
	Codec     string   `json:"codec"`
	Family    Family   `json:"family"`
	Hardware  []string `json:"hardwareDecoders,omitempty"`
	Optimal   bool     `json:"optimal"`
	Reason    string   `json:"reason"`
	Transcode string   `json:"transcode,omitempty"`
}

// Advise grades stream given the hardware decoders the local FFmpeg build
// offers for it. Only video streams get advice.
func Advise(path string, stream mpeg.StreamInfo, hardware []string) (Advice, bool) {
	if stream.Type != mpeg.MediaTypeVideo || stream.AttachedPicture {
		return Advice{}, false
	}
	a := Advice{
		Stream:   stream.Index,
		Codec:    stream.CodecName,
		Family:   DetectFamily(stream.CodecName),
		Hardware: hardware,
	}

	switch {
	case len(hardware) > 0 && stream.Height <= 2160:
		a.Optimal = true
		a.Reason = fmt.Sprintf("%s decodes in hardware with %s", a.Family, hardware[0])
	case len(hardware) > 0:
		a.Reason = fmt.Sprintf("%s has a hardware decoder but %dp exceeds what it is tuned for", a.Family, stream.Height)
		a.Transcode = transcodeCommand(path, stream.Height)
	case a.Family == FamilyAV1 || a.Family == FamilyHEVC:
		a.Reason = fmt.Sprintf("%s software decode is very CPU intensive", a.Family)
		a.Transcode = transcodeCommand(path, stream.Height)
	case a.Family == FamilyUnknown:
		a.Reason = "unknown codec, H.264 has the widest hardware support"
		a.Transcode = transcodeCommand(path, stream.Height)
	default:
		a.Reason = fmt.Sprintf("no hardware decoder for %s in this FFmpeg build", a.Family)
		a.Transcode = transcodeCommand(path, stream.Height)
	}
	return a, true
}

// transcodeCommand is an ffmpeg command producing H.264 at no more than
// 1080 lines.
func transcodeCommand(path string, height int) string {
	scale := ""
	if height > 1080 {
		scale = "-vf scale=-2:1080 "
	}
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".h264.mp4"
	return fmt.Sprintf("ffmpeg -i %q -c:v libx264 -profile:v high -preset slow -crf 23 %s-c:a copy %q", path, scale, out)
}
