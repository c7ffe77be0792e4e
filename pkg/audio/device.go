package audio

import "errors"

// ErrDeviceLost is returned by Write once the device went away.
var ErrDeviceLost = errors.New("audio device lost")

// Device is an output that accepts queued samples.
type Device interface {
	// ID identifies the physical device; empty means the system default.
	ID() string
	Format() Format
	// Write queues interleaved samples behind what is already queued.
	Write(samples []int16) error
	// Delay is the duration queued but not yet audible.
	Delay() float64
	Pause(paused bool)
	// Clear drops everything queued.
	Clear()
	// Lost reports that the device disappeared and must be reopened.
	Lost() bool
	Close()
}

// Opener creates a device for id, asking for format. The device may settle on
// a different format.
type Opener func(id string, format Format) (Device, error)

// ApplyVolume scales samples in place. A muted or zero volume writes silence.
func ApplyVolume(samples []int16, volume float64, muted bool) {
	if muted || volume <= 0 {
		clear(samples)
		return
	}
	if volume >= 1 {
		return
	}
	for i, s := range samples {
		samples[i] = int16(float64(s) * volume)
	}
}
