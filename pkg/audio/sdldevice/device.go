// Package sdldevice plays audio through an SDL2 queued-audio device.
package sdldevice

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/audio"
)

// bufferFrames is the SDL callback period; queued audio is unaffected by it.
const bufferFrames = 1024

var initOnce sync.Once
var initErr error

func initAudio() error {
	initOnce.Do(func() {
		if sdl.WasInit(sdl.INIT_AUDIO) != 0 {
			return
		}
		initErr = sdl.InitSubSystem(sdl.INIT_AUDIO)
	})
	return initErr
}

// Device is an audio.Device backed by SDL_QueueAudio.
type Device struct {
	id     string
	dev    sdl.AudioDeviceID
	format audio.Format
	log    *logrus.Entry

	mu     sync.Mutex
	closed bool
	buf    []byte
}

// Open implements audio.Opener. An empty id picks the system default.
func Open(id string, format audio.Format) (audio.Device, error) {
	if err := initAudio(); err != nil {
		return nil, fmt.Errorf("sdl audio init: %w", err)
	}
	if !format.Valid() {
		format = audio.DefaultFormat
	}

	desired := sdl.AudioSpec{
		Freq:     int32(format.SampleRate),
		Format:   sdl.AUDIO_S16SYS,
		Channels: uint8(format.Channels),
		Samples:  bufferFrames,
	}
	var obtained sdl.AudioSpec
	dev, err := sdl.OpenAudioDevice(id, false, &desired, &obtained, sdl.AUDIO_ALLOW_FREQUENCY_CHANGE)
	if err != nil {
		return nil, fmt.Errorf("open audio device %q: %w", id, err)
	}

	d := &Device{
		id:     id,
		dev:    dev,
		format: audio.Format{SampleRate: int(obtained.Freq), Channels: int(obtained.Channels)},
		log:    logrus.WithFields(logrus.Fields{"component": "audio-device", "device": id}),
	}
	d.log.WithFields(logrus.Fields{"rate": d.format.SampleRate, "channels": d.format.Channels}).Info("audio device opened")
	return d, nil
}

// Devices lists the names of the playback devices SDL can see.
func Devices() []string {
	if err := initAudio(); err != nil {
		return nil
	}
	n := sdl.GetNumAudioDevices(false)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, sdl.GetAudioDeviceName(i, false))
	}
	return names
}

func (d *Device) ID() string           { return d.id }
func (d *Device) Format() audio.Format { return d.format }

func (d *Device) Write(samples []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return audio.ErrDeviceLost
	}
	if len(samples) == 0 {
		return nil
	}

	// SDL wants native-endian bytes, which is exactly the in-memory layout.
	d.buf = append(d.buf[:0], unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2)...)
	if err := sdl.QueueAudio(d.dev, d.buf); err != nil {
		return fmt.Errorf("queue audio: %w", err)
	}
	return nil
}

func (d *Device) Delay() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	queued := int(sdl.GetQueuedAudioSize(d.dev)) / d.format.BytesPerFrame()
	return d.format.Seconds(queued)
}

func (d *Device) Pause(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		sdl.PauseAudioDevice(d.dev, paused)
	}
}

func (d *Device) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		sdl.ClearQueuedAudio(d.dev)
	}
}

// Lost reports a device SDL stopped, which is how unplugged devices show up.
func (d *Device) Lost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed || sdl.GetAudioDeviceStatus(d.dev) == sdl.AUDIO_STOPPED
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	sdl.CloseAudioDevice(d.dev)
	d.log.Debug("audio device closed")
}
