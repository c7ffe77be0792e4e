// Package mpegtest provides a synthetic mpeg.Backend for tests: files are
// described in memory and decode into predictable frames.
package mpegtest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"flow-player/pkg/mpeg"
)

// TimeBase of every synthetic stream: milliseconds.
var TimeBase = mpeg.Rational{Num: 1, Den: 1000}

// File describes a synthetic media file.
type File struct {
	Duration float64

	Video     bool
	FPS       float64
	Width     int
	Height    int
	Rotation  int
	GOP       int // keyframe interval in frames, 1 when zero
	StartTime float64

	Audio      bool
	SampleRate int
	Channels   int
	// AudioFrame is the duration of one audio packet.
	AudioFrame float64

	// FailCodec makes OpenCodec fail for that media type.
	FailCodec mpeg.MediaType
}

// AV returns a typical audio+video file of the given length.
func AV(duration float64) File {
	return File{
		Duration: duration,
		Video:    true, FPS: 25, Width: 4, Height: 2,
		Audio: true, SampleRate: 8000, Channels: 2, AudioFrame: 0.1,
	}
}

// Backend serves registered files. The zero value is not usable; use New.
type Backend struct {
	mu    sync.Mutex
	files map[string]File

	Opens   atomic.Int32
	Seeks   atomic.Int32
	Flushes atomic.Int32
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{files: map[string]File{}}
}

// Add registers f under path.
func (b *Backend) Add(path string, f File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[path] = f
}

// Open implements mpeg.Backend.
func (b *Backend) Open(path string) (mpeg.Container, error) {
	b.mu.Lock()
	f, ok := b.files[path]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mpegtest: %s: %w", path, mpeg.ErrNotSupported)
	}
	b.Opens.Add(1)
	return newContainer(b, f), nil
}

type packet struct {
	stream int
	ts     int64
	key    bool
}

type container struct {
	backend *Backend
	file    File
	streams []mpeg.StreamInfo
	packets []packet
	pos     int
	closed  bool
}

func ms(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func newContainer(b *Backend, f File) *container {
	c := &container{backend: b, file: f}
	start := ms(f.StartTime)

	if f.Video {
		idx := len(c.streams)
		c.streams = append(c.streams, mpeg.StreamInfo{
			Index: idx, Type: mpeg.MediaTypeVideo, TypeName: "video", CodecName: "rawvideo",
			Width: f.Width, Height: f.Height, Rotation: f.Rotation, FrameRate: f.FPS,
			TimeBase: TimeBase, StartTime: f.StartTime, Duration: f.Duration, Default: true,
		})
		gop := max(f.GOP, 1)
		n := int(math.Round(f.Duration * f.FPS))
		for i := 0; i < n; i++ {
			c.packets = append(c.packets, packet{stream: idx, ts: start + ms(float64(i)/f.FPS), key: i%gop == 0})
		}
	}
	if f.Audio {
		idx := len(c.streams)
		c.streams = append(c.streams, mpeg.StreamInfo{
			Index: idx, Type: mpeg.MediaTypeAudio, TypeName: "audio", CodecName: "pcm_s16le",
			SampleRate: f.SampleRate, Channels: f.Channels,
			TimeBase: TimeBase, StartTime: f.StartTime, Duration: f.Duration, Default: true,
		})
		n := int(math.Round(f.Duration / f.AudioFrame))
		for i := 0; i < n; i++ {
			c.packets = append(c.packets, packet{stream: idx, ts: start + ms(float64(i)*f.AudioFrame), key: true})
		}
	}
	sort.SliceStable(c.packets, func(i, j int) bool { return c.packets[i].ts < c.packets[j].ts })
	return c
}

func (c *container) Info() mpeg.ContainerInfo {
	return mpeg.ContainerInfo{
		FormatName: "synthetic",
		StartTime:  c.file.StartTime,
		Duration:   c.file.Duration,
		Metadata:   map[string]string{"title": "synthetic"},
	}
}

func (c *container) Streams() []mpeg.StreamInfo { return c.streams }

func (c *container) ReadPacket() (*mpeg.Packet, error) {
	if c.closed {
		return nil, mpeg.ErrClosed
	}
	if c.pos >= len(c.packets) {
		return nil, io.EOF
	}
	p := c.packets[c.pos]
	c.pos++
	return mpeg.NewPacket(p.stream, p.ts, p.ts, p, nil), nil
}

// Seek lands on the last keyframe at or before seconds when backward is set,
// otherwise on the first keyframe at or after it.
func (c *container) Seek(seconds float64, backward bool) error {
	c.backend.Seeks.Add(1)
	target := ms(seconds)
	pos := -1
	if backward {
		for i, p := range c.packets {
			if p.ts > target {
				break
			}
			if p.key && c.isVideoOrOnly(p) {
				pos = i
			}
		}
		if pos < 0 {
			pos = 0
		}
	} else {
		for i, p := range c.packets {
			if p.ts >= target && p.key && c.isVideoOrOnly(p) {
				pos = i
				break
			}
		}
		if pos < 0 {
			pos = len(c.packets)
		}
	}
	// Rewind to the first packet sharing the keyframe's timestamp so streams
	// stay interleaved.
	for pos > 0 && pos < len(c.packets) && c.packets[pos-1].ts == c.packets[pos].ts {
		pos--
	}
	c.pos = pos
	return nil
}

func (c *container) isVideoOrOnly(p packet) bool {
	return !c.file.Video || c.streams[p.stream].Type == mpeg.MediaTypeVideo
}

func (c *container) OpenCodec(info mpeg.StreamInfo, allowHW bool) (mpeg.Codec, error) {
	if c.file.FailCodec != mpeg.MediaTypeUnknown && info.Type == c.file.FailCodec {
		return nil, fmt.Errorf("mpegtest: codec %s: %w", info.CodecName, mpeg.ErrNotSupported)
	}
	return &codec{backend: c.backend, file: c.file, info: info}, nil
}

func (c *container) Close() error {
	c.closed = true
	return nil
}

type codec struct {
	backend  *Backend
	file     File
	info     mpeg.StreamInfo
	pending  []packet
	draining bool
}

func (c *codec) SendPacket(p *mpeg.Packet) error {
	if p == nil {
		c.draining = true
		return nil
	}
	raw, ok := p.Native.(packet)
	if !ok {
		return mpeg.ErrNotSupported
	}
	c.pending = append(c.pending, raw)
	return nil
}

func (c *codec) ReceiveFrame() (*mpeg.Frame, error) {
	if len(c.pending) == 0 {
		if c.draining {
			return nil, io.EOF
		}
		return nil, mpeg.ErrAgain
	}
	p := c.pending[0]
	c.pending = c.pending[1:]

	f := mpeg.NewFrame(c.info.Type, p.ts, p.ts, nil, nil)
	switch c.info.Type {
	case mpeg.MediaTypeVideo:
		f.Width, f.Height = c.file.Width, c.file.Height
		f.Pixels = make([]byte, f.Width*f.Height*4)
		for i := range f.Pixels {
			f.Pixels[i] = byte(p.ts / 40)
		}
	case mpeg.MediaTypeAudio:
		f.SampleRate = c.file.SampleRate
		f.Channels = c.file.Channels
		f.NbSamples = int(math.Round(c.file.AudioFrame * float64(c.file.SampleRate)))
		f.Native = AudioPayload{Samples: f.NbSamples, Channels: f.Channels}
	}
	return f, nil
}

func (c *codec) Flush() error {
	c.backend.Flushes.Add(1)
	c.pending = nil
	c.draining = false
	return nil
}

func (c *codec) Close() {}

// AudioPayload is the native value of synthetic audio frames.
type AudioPayload struct {
	Samples  int
	Channels int
}
