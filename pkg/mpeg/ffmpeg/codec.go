package ffmpeg

import (
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/sirupsen/logrus"

	"flow-player/pkg/mpeg"
)

type codec struct {
	info   mpeg.StreamInfo
	par    *astiav.CodecParameters
	dec    *astiav.Codec
	cc     *astiav.CodecContext
	frame  *astiav.Frame
	scaler rgbaScaler
	log    *logrus.Entry
}

func openCodec(s *astiav.Stream, info mpeg.StreamInfo, preferred string, allowHW bool, log *logrus.Entry) (*codec, error) {
	par := s.CodecParameters()
	log = log.WithFields(logrus.Fields{"stream": info.Index, "codec": info.CodecName})

	for _, dec := range decoderCandidates(par.CodecID(), preferred, allowHW) {
		cc, err := openContext(dec, par)
		if err != nil {
			log.WithError(err).WithField("decoder", dec.Name()).Debug("decoder unavailable")
			continue
		}
		log.WithField("decoder", dec.Name()).Info("decoder opened")
		return &codec{info: info, par: par, dec: dec, cc: cc, frame: astiav.AllocFrame(), log: log}, nil
	}
	return nil, fmt.Errorf("ffmpeg: no working decoder for %s: %w", info.CodecName, mpeg.ErrNotSupported)
}

func openContext(dec *astiav.Codec, par *astiav.CodecParameters) (*astiav.CodecContext, error) {
	cc := astiav.AllocCodecContext(dec)
	if cc == nil {
		return nil, errors.New("alloc codec context")
	}
	if err := par.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, err
	}
	cc.SetThreadType(astiav.ThreadTypeFrame)
	cc.SetThreadCount(0)
	if err := cc.Open(dec, nil); err != nil {
		cc.Free()
		return nil, err
	}
	return cc, nil
}

func (c *codec) SendPacket(p *mpeg.Packet) error {
	var pkt *astiav.Packet
	if p != nil {
		pkt, _ = p.Native.(*astiav.Packet)
		if pkt == nil {
			return fmt.Errorf("ffmpeg: packet without native data: %w", mpeg.ErrNotSupported)
		}
	}
	err := c.cc.SendPacket(pkt)
	if errors.Is(err, astiav.ErrEagain) {
		return mpeg.ErrAgain
	}
	return err
}

func (c *codec) ReceiveFrame() (*mpeg.Frame, error) {
	switch c.info.Type {
	case mpeg.MediaTypeVideo:
		return c.receiveVideo()
	case mpeg.MediaTypeAudio:
		return c.receiveAudio()
	}
	return nil, mpeg.ErrNotSupported
}

func receiveError(err error) error {
	switch {
	case errors.Is(err, astiav.ErrEagain):
		return mpeg.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return io.EOF
	}
	return err
}

func (c *codec) receiveVideo() (*mpeg.Frame, error) {
	if err := c.cc.ReceiveFrame(c.frame); err != nil {
		return nil, receiveError(err)
	}
	defer c.frame.Unref()

	w, h, pixels, err := c.scaler.toRGBA(c.frame)
	if err != nil {
		return nil, err
	}
	f := mpeg.NewFrame(mpeg.MediaTypeVideo, timestamp(c.frame.Pts()), timestamp(c.frame.PktDts()), nil, nil)
	f.Width, f.Height, f.Pixels = w, h, pixels
	return f, nil
}

func (c *codec) receiveAudio() (*mpeg.Frame, error) {
	af := astiav.AllocFrame()
	if err := c.cc.ReceiveFrame(af); err != nil {
		af.Free()
		return nil, receiveError(err)
	}
	f := mpeg.NewFrame(mpeg.MediaTypeAudio, timestamp(af.Pts()), timestamp(af.PktDts()), af, af.Free)
	f.SampleRate = af.SampleRate()
	f.Channels = af.ChannelLayout().Channels()
	f.NbSamples = af.NbSamples()
	return f, nil
}

// Flush reopens the codec context, which drops every buffered frame and
// leaves the decoder ready for input after a drain.
func (c *codec) Flush() error {
	cc, err := openContext(c.dec, c.par)
	if err != nil {
		return fmt.Errorf("ffmpeg: reopen %s: %w", c.dec.Name(), err)
	}
	c.cc.Free()
	c.cc = cc
	return nil
}

func (c *codec) Close() {
	if c.cc != nil {
		c.cc.Free()
		c.cc = nil
	}
	if c.frame != nil {
		c.frame.Free()
		c.frame = nil
	}
	c.scaler.close()
}
