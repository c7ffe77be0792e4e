// Package ffmpeg implements the mpeg backend on top of FFmpeg through
// go-astiav.
package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/sirupsen/logrus"

	"flow-player/pkg/mpeg"
)

var logOnce sync.Once

// Options tune decoder selection.
type Options struct {
	// Decoder names a decoder to try before the built-in priority list.
	Decoder string
	// ForceSoftware disables hardware decoders even when a caller allows
	// them.
	ForceSoftware bool
}

// Backend opens files with libavformat.
type Backend struct {
	opts Options
	log  *logrus.Entry
}

// New creates a backend.
func New(opts Options) *Backend {
	logOnce.Do(func() {
		// Colourspace conversion notices flood stderr otherwise.
		astiav.SetLogLevel(astiav.LogLevelError)
	})
	return &Backend{opts: opts, log: logrus.WithField("component", "ffmpeg")}
}

// Open implements mpeg.Backend.
func (b *Backend) Open(path string) (mpeg.Container, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("ffmpeg: alloc format context")
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("ffmpeg: open %s: %w", path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("ffmpeg: stream info %s: %w", path, err)
	}

	c := &container{backend: b, fc: fc, path: path}
	for _, s := range fc.Streams() {
		c.streams = append(c.streams, streamInfo(s))
	}
	return c, nil
}

type container struct {
	backend *Backend
	fc      *astiav.FormatContext
	path    string
	streams []mpeg.StreamInfo
	closed  bool
}

func (c *container) Info() mpeg.ContainerInfo {
	info := mpeg.ContainerInfo{
		BitRate:   c.fc.BitRate(),
		StartTime: microseconds(c.fc.StartTime()),
		Duration:  microseconds(c.fc.Duration()),
		Metadata:  dictionary(c.fc.Metadata()),
	}
	if f := c.fc.InputFormat(); f != nil {
		info.FormatName = f.Name()
	}
	return info
}

func (c *container) Streams() []mpeg.StreamInfo {
	return c.streams
}

func (c *container) ReadPacket() (*mpeg.Packet, error) {
	if c.closed {
		return nil, mpeg.ErrClosed
	}
	pkt := astiav.AllocPacket()
	if err := c.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, err
	}
	return mpeg.NewPacket(pkt.StreamIndex(), timestamp(pkt.Pts()), timestamp(pkt.Dts()), pkt, pkt.Free), nil
}

func (c *container) Seek(seconds float64, backward bool) error {
	if c.closed {
		return mpeg.ErrClosed
	}
	flags := astiav.NewSeekFlags()
	if backward {
		flags = astiav.NewSeekFlags(astiav.SeekFlagBackward)
	}
	return c.fc.SeekFrame(-1, int64(seconds*1e6), flags)
}

func (c *container) OpenCodec(info mpeg.StreamInfo, allowHW bool) (mpeg.Codec, error) {
	streams := c.fc.Streams()
	if info.Index < 0 || info.Index >= len(streams) {
		return nil, fmt.Errorf("ffmpeg: no stream %d", info.Index)
	}
	s := streams[info.Index]
	allowHW = allowHW && !c.backend.opts.ForceSoftware && info.Type == mpeg.MediaTypeVideo
	return openCodec(s, info, c.backend.opts.Decoder, allowHW, c.backend.log)
}

func (c *container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.fc.CloseInput()
	c.fc.Free()
	return nil
}

func streamInfo(s *astiav.Stream) mpeg.StreamInfo {
	par := s.CodecParameters()
	tb := s.TimeBase()

	info := mpeg.StreamInfo{
		Index:     s.Index(),
		CodecID:   int(par.CodecID()),
		CodecName: par.CodecID().Name(),
		BitRate:   par.BitRate(),
		TimeBase:  mpeg.Rational{Num: tb.Num(), Den: tb.Den()},
		Metadata:  dictionary(s.Metadata()),
		Default:   s.DispositionFlags().Has(astiav.StreamDispositionFlagDefault),
	}
	if st := s.StartTime(); st != astiav.NoPtsValue {
		info.StartTime = info.TimeBase.Seconds(st)
	}
	if d := s.Duration(); d != astiav.NoPtsValue && d > 0 {
		info.Duration = info.TimeBase.Seconds(d)
	}
	info.Language = info.Metadata["language"]

	switch par.MediaType() {
	case astiav.MediaTypeVideo:
		info.Type = mpeg.MediaTypeVideo
		info.Width, info.Height = par.Width(), par.Height()
		info.PixelFormat = par.PixelFormat().String()
		info.AttachedPicture = s.DispositionFlags().Has(astiav.StreamDispositionFlagAttachedPic)
		if r := s.AvgFrameRate(); r.Num() > 0 && r.Den() > 0 {
			info.FrameRate = r.Float64()
		} else if r := s.RFrameRate(); r.Num() > 0 && r.Den() > 0 {
			info.FrameRate = r.Float64()
		}
		info.Rotation = rotation(par, info.Metadata)
	case astiav.MediaTypeAudio:
		info.Type = mpeg.MediaTypeAudio
		info.SampleRate = par.SampleRate()
		info.Channels = par.ChannelLayout().Channels()
		info.SampleFmt = par.SampleFormat().String()
	case astiav.MediaTypeSubtitle:
		info.Type = mpeg.MediaTypeSubtitle
	case astiav.MediaTypeData:
		info.Type = mpeg.MediaTypeData
	}
	info.TypeName = info.Type.String()
	return info
}

// rotation prefers the display matrix in the coded side data; FFmpeg 7 no
// longer mirrors it into a "rotate" tag, which older files may still carry.
func rotation(par *astiav.CodecParameters, metadata map[string]string) int {
	if sd := par.SideData(); sd != nil {
		if deg, ok := mpeg.DisplayMatrixRotation(sd.Get(astiav.PacketSideDataTypeDisplaymatrix)); ok {
			return deg
		}
	}
	if v, err := strconv.Atoi(metadata["rotate"]); err == nil {
		return v
	}
	return 0
}

func dictionary(d *astiav.Dictionary) map[string]string {
	if d == nil {
		return nil
	}
	out := map[string]string{}
	flags := astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix)
	var e *astiav.DictionaryEntry
	for {
		if e = d.Get("", e, flags); e == nil {
			break
		}
		out[e.Key()] = e.Value()
	}
	return out
}

func timestamp(ts int64) int64 {
	if ts == astiav.NoPtsValue {
		return mpeg.NoPTS
	}
	return ts
}

func microseconds(us int64) float64 {
	if us == astiav.NoPtsValue {
		return math.NaN()
	}
	return float64(us) / 1e6
}
