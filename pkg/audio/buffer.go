// Package audio holds resampled PCM on its way to the output device.
package audio

import (
	"math"
	"sync"
)

// Format is the device side sample layout: interleaved signed 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is used when no device has been opened yet.
var DefaultFormat = Format{SampleRate: 48000, Channels: 2}

// Valid reports whether f can describe real audio.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// BytesPerFrame is the size of one sample for every channel.
func (f Format) BytesPerFrame() int {
	return 2 * f.Channels
}

// Frames converts a duration into a frame count.
func (f Format) Frames(seconds float64) int {
	if seconds <= 0 || f.SampleRate <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(f.SampleRate)))
}

// Seconds converts a frame count into a duration.
func (f Format) Seconds(frames int) float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(frames) / float64(f.SampleRate)
}

// Buffer is a FIFO of interleaved samples stamped with the media time of the
// first unread frame and the seek generation it belongs to. The audio worker
// writes and drains it; other goroutines only read the summary fields.
type Buffer struct {
	mu         sync.Mutex
	format     Format
	samples    []int16
	off        int
	startTime  float64
	generation uint32
}

// NewBuffer creates an empty buffer for format.
func NewBuffer(format Format) *Buffer {
	return &Buffer{format: format}
}

// Format returns the sample layout of the buffer.
func (b *Buffer) Format() Format {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format
}

// Write appends interleaved samples. startTime is the media time of the first
// frame and only matters when the buffer is empty.
func (b *Buffer) Write(samples []int16, startTime float64) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frames() == 0 {
		b.startTime = startTime
		b.samples = b.samples[:0]
		b.off = 0
	}
	b.samples = append(b.samples, samples...)
}

// AppendSilence appends seconds of zeros after the buffered samples.
func (b *Buffer) AppendSilence(seconds float64, startTime float64) {
	f := b.Format()
	n := f.Frames(seconds) * f.Channels
	if n == 0 {
		return
	}
	b.Write(make([]int16, n), startTime)
}

// Read moves up to len(dst) samples into dst and advances the start time.
// It returns the number of samples copied, always whole frames.
func (b *Buffer) Read(dst []int16) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := max(1, b.format.Channels)
	n := min(len(dst), len(b.samples)-b.off)
	n -= n % ch
	copy(dst, b.samples[b.off:b.off+n])
	b.consume(n)
	return n
}

// Skip drops up to frames frames without copying them.
func (b *Buffer) Skip(frames int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(frames*b.format.Channels, len(b.samples)-b.off)
	b.consume(n)
	return n / max(1, b.format.Channels)
}

func (b *Buffer) consume(n int) {
	b.off += n
	if b.format.SampleRate > 0 && b.format.Channels > 0 {
		b.startTime += float64(n/b.format.Channels) / float64(b.format.SampleRate)
	}
	if b.off == len(b.samples) {
		b.samples = b.samples[:0]
		b.off = 0
	} else if b.off > len(b.samples)/2 {
		m := copy(b.samples, b.samples[b.off:])
		b.samples = b.samples[:m]
		b.off = 0
	}
}

func (b *Buffer) frames() int {
	if b.format.Channels == 0 {
		return 0
	}
	return (len(b.samples) - b.off) / b.format.Channels
}

// Available is the number of buffered frames.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames()
}

// Seconds is the buffered duration.
func (b *Buffer) Seconds() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format.Seconds(b.frames())
}

// StartTime is the media time of the first unread frame.
func (b *Buffer) StartTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startTime
}

// EndTime is the media time right after the last buffered frame.
func (b *Buffer) EndTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startTime + b.format.Seconds(b.frames())
}

// Generation is the seek generation of the buffered samples.
func (b *Buffer) Generation() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Reset empties the buffer and tags it with generation.
func (b *Buffer) Reset(generation uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
	b.off = 0
	b.startTime = 0
	b.generation = generation
}

// SetFormat empties the buffer and switches its layout.
func (b *Buffer) SetFormat(format Format) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.format = format
	b.samples = b.samples[:0]
	b.off = 0
}
