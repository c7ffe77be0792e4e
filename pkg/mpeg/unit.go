package mpeg

import "sync/atomic"

// handle is a shared reference count. The free function runs once, when the
// last holder releases.
type handle struct {
	refs atomic.Int32
	free func()
}

func (h *handle) init(free func()) {
	h.refs.Store(1)
	h.free = free
}

// Retain adds a holder.
func (h *handle) Retain() {
	h.refs.Add(1)
}

// Release drops a holder and frees the native resources when none remain.
func (h *handle) Release() {
	if h.refs.Add(-1) == 0 && h.free != nil {
		h.free()
	}
}

// Packet is one demuxed, still encoded unit.
type Packet struct {
	handle

	StreamIndex int
	PTS         int64
	DTS         int64
	Seconds     float64
	Generation  uint32
	EOF         bool

	// Native is the backend's packet, handed back to its codec.
	Native any
}

// NewPacket wraps a backend packet. free may be nil.
func NewPacket(streamIndex int, pts, dts int64, native any, free func()) *Packet {
	p := &Packet{StreamIndex: streamIndex, PTS: pts, DTS: dts, Native: native}
	p.init(free)
	return p
}

// NewEOFPacket builds the end-of-stream marker pushed once per packet queue.
func NewEOFPacket(streamIndex int, generation uint32) *Packet {
	p := &Packet{StreamIndex: streamIndex, PTS: NoPTS, DTS: NoPTS, Generation: generation, EOF: true}
	p.init(nil)
	return p
}

// Time implements queue.Item.
func (p *Packet) Time() float64 { return p.Seconds }

// Frame is one decoded picture or block of audio samples.
type Frame struct {
	handle

	Type       MediaType
	PTS        int64
	DTS        int64
	Seconds    float64
	Duration   float64
	Generation uint32
	EOF        bool

	// Video: tightly packed RGBA.
	Width  int
	Height int
	Pixels []byte

	// Audio.
	SampleRate int
	Channels   int
	NbSamples  int

	// Native is the backend's decoded frame, used by the resampler.
	Native any
}

// NewFrame wraps a decoded backend frame. free may be nil.
func NewFrame(t MediaType, pts, dts int64, native any, free func()) *Frame {
	f := &Frame{Type: t, PTS: pts, DTS: dts, Native: native}
	f.init(free)
	return f
}

// NewEOFFrame builds the end-of-stream marker a decoder emits after draining.
func NewEOFFrame(t MediaType, seconds float64, generation uint32) *Frame {
	f := &Frame{Type: t, PTS: NoPTS, DTS: NoPTS, Seconds: seconds, Generation: generation, EOF: true}
	f.init(nil)
	return f
}

// Time implements queue.Item.
func (f *Frame) Time() float64 { return f.Seconds }

// End is the media time right after the frame.
func (f *Frame) End() float64 { return f.Seconds + f.Duration }
