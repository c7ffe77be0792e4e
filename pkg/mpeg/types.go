// Package mpeg wraps a demux/decode backend behind the Decoder used by a
// playback session, and defines the packet, frame and stream descriptions
// that flow between the session's queues.
package mpeg

import (
	"encoding/binary"
	"errors"
	"math"
)

// NoPTS marks an unknown timestamp. It has the same value FFmpeg uses.
const NoPTS int64 = math.MinInt64

var (
	ErrClosed       = errors.New("decoder closed")
	ErrNoVideo      = errors.New("no video stream")
	ErrNoFrame      = errors.New("no frame decoded")
	ErrAgain        = errors.New("codec needs more input")
	ErrNotSupported = errors.New("not supported by backend")
)

// MediaType is the kind of data a stream carries.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeData
	MediaTypeSubtitle
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeData:
		return "data"
	case MediaTypeSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// Rational is a stream time base.
type Rational struct {
	Num int
	Den int
}

// Seconds converts a timestamp expressed in this time base.
func (r Rational) Seconds(ts int64) float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(ts) * float64(r.Num) / float64(r.Den)
}

// Timestamp converts seconds into this time base.
func (r Rational) Timestamp(seconds float64) int64 {
	if r.Num == 0 {
		return 0
	}
	return int64(math.Round(seconds * float64(r.Den) / float64(r.Num)))
}

// StreamInfo describes one elementary stream of a container.
type StreamInfo struct {
	Index       int       `json:"index"`
	Type        MediaType `json:"-"`
	TypeName    string    `json:"type"`
	CodecID     int       `json:"codecId"`
	CodecName   string    `json:"codec"`
	PixelFormat string    `json:"pixelFormat,omitempty"`
	SampleFmt   string    `json:"sampleFormat,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	SampleRate  int       `json:"sampleRate,omitempty"`
	Channels    int       `json:"channels,omitempty"`
	Language    string    `json:"language,omitempty"`
	Rotation    int       `json:"rotation,omitempty"`
	BitRate     int64     `json:"bitRate,omitempty"`
	FrameRate   float64   `json:"frameRate,omitempty"`
	TimeBase    Rational  `json:"-"`
	StartTime   float64   `json:"startTime"`
	Duration    float64   `json:"duration"`
	Default     bool      `json:"default,omitempty"`
	// AttachedPicture marks cover art stored as a one-frame video stream.
	AttachedPicture bool              `json:"attachedPicture,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ContainerInfo holds container level facts reported by the backend. Unknown
// times are NaN.
type ContainerInfo struct {
	FormatName string
	BitRate    int64
	StartTime  float64
	Duration   float64
	Metadata   map[string]string
}

// MediaInfo aggregates everything known about an opened file. It is built
// once by InitStreams and never mutated afterwards.
type MediaInfo struct {
	Path         string            `json:"path"`
	Format       string            `json:"format"`
	Streams      []StreamInfo      `json:"streams"`
	BitRate      int64             `json:"bitRate"`
	StartTime    float64           `json:"startTime"`
	EndTime      float64           `json:"endTime"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	RenderWidth  int               `json:"renderWidth"`
	RenderHeight int               `json:"renderHeight"`
	Orientation  int               `json:"orientation"`
	HasVideo     bool              `json:"hasVideo"`
	HasAudio     bool              `json:"hasAudio"`
	VideoIndex   int               `json:"videoIndex"`
	AudioIndex   int               `json:"audioIndex"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Duration is the playable length in seconds, relative to the start time.
func (m MediaInfo) Duration() float64 {
	return m.EndTime
}

// Video returns the selected video stream.
func (m MediaInfo) Video() (StreamInfo, bool) {
	return m.stream(m.VideoIndex)
}

// Audio returns the selected audio stream.
func (m MediaInfo) Audio() (StreamInfo, bool) {
	return m.stream(m.AudioIndex)
}

func (m MediaInfo) stream(index int) (StreamInfo, bool) {
	for _, s := range m.Streams {
		if s.Index == index {
			return s, true
		}
	}
	return StreamInfo{}, false
}

// DisplayMatrixRotation decodes the clockwise display rotation in degrees
// from a container display matrix: nine little-endian 16.16 fixed point
// int32 values, row major. It returns false for a short or degenerate
// matrix.
func DisplayMatrixRotation(matrix []byte) (int, bool) {
	if len(matrix) < 9*4 {
		return 0, false
	}
	at := func(i int) float64 {
		return float64(int32(binary.LittleEndian.Uint32(matrix[i*4:]))) / (1 << 16)
	}
	scaleX := math.Hypot(at(0), at(3))
	scaleY := math.Hypot(at(1), at(4))
	if scaleX == 0 || scaleY == 0 {
		return 0, false
	}
	deg := math.Atan2(at(1)/scaleY, at(0)/scaleX) * 180 / math.Pi
	return int(math.Round(deg)), true
}

// normalizeRotation maps any angle onto 0, 90, 180 or 270.
func normalizeRotation(deg int) int {
	r := ((deg % 360) + 360) % 360
	switch {
	case r < 45 || r >= 315:
		return 0
	case r < 135:
		return 90
	case r < 225:
		return 180
	default:
		return 270
	}
}
