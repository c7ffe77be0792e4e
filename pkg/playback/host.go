// Package playback keeps decoded audio and video of one open file in sync
// and runs the background workers that feed it.
package playback

import (
	"time"
)

// Host is the UI side of a session. Workers never touch UI state directly;
// they ask for a redraw or post a closure onto the UI thread.
type Host interface {
	InvalidateView(reason string)
	QueueUI(fn func())
}

// TextureSink receives the frame to display as tightly packed RGBA.
type TextureSink interface {
	UpdateTexture(width, height int, rgba []byte) error
}

// TextureResult tells the UI what UpdateTexture did to its surface.
type TextureResult int

const (
	// TextureInvalid means there is nothing to show yet.
	TextureInvalid TextureResult = iota
	// TexturePresent means a new frame was uploaded.
	TexturePresent
	// TextureValid means the uploaded frame is still current.
	TextureValid
)

func (r TextureResult) String() string {
	switch r {
	case TexturePresent:
		return "present"
	case TextureValid:
		return "valid"
	default:
		return "invalid"
	}
}

// Item is the file a session plays. LastPosition is owned by the item model;
// the session only reads it.
type Item struct {
	Path         string
	Title        string
	LastPosition float64
}

// State is the play state of a session.
type State int32

const (
	Detached State = iota
	Closed
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "detached"
	}
}

// OpenOptions controls how a session opens its item.
type OpenOptions struct {
	AutoPlay bool
	// VideoTrack and AudioTrack pick the n-th stream of their type; -1 picks
	// the best one.
	VideoTrack      int
	AudioTrack      int
	AllowHW         bool
	UseLastPosition bool
}

// DefaultOpenOptions plays immediately from the start with automatic stream
// selection.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{AutoPlay: true, VideoTrack: -1, AudioTrack: -1, AllowHW: true}
}

// Clock returns monotonic wall time in seconds.
type Clock func() float64

// WallClock counts seconds from the moment it is created.
func WallClock() Clock {
	start := time.Now()
	return func() float64 {
		return time.Since(start).Seconds()
	}
}

type nopHost struct{}

func (nopHost) InvalidateView(string) {}
func (nopHost) QueueUI(fn func())     { fn() }
