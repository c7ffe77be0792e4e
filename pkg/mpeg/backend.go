package mpeg

// Backend opens containers. The production implementation lives in
// pkg/mpeg/ffmpeg; tests provide their own.
type Backend interface {
	Open(path string) (Container, error)
}

// Container is an opened, demuxable file.
type Container interface {
	Info() ContainerInfo
	Streams() []StreamInfo
	// ReadPacket returns io.EOF once the source is exhausted.
	ReadPacket() (*Packet, error)
	// Seek positions the demuxer at the keyframe nearest to seconds, measured
	// on the container clock (start time included).
	Seek(seconds float64, backward bool) error
	OpenCodec(stream StreamInfo, allowHW bool) (Codec, error)
	Close() error
}

// Codec decodes the packets of a single stream.
type Codec interface {
	// SendPacket feeds one packet; a nil packet starts draining.
	SendPacket(p *Packet) error
	// ReceiveFrame returns ErrAgain when more input is needed and io.EOF once
	// a drain completed. Video frames come back as RGBA.
	ReceiveFrame() (*Frame, error)
	// Flush discards buffered decoder state.
	Flush() error
	Close()
}
