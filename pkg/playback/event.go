package playback

import (
	"context"
	"time"
)

// Event is an auto-reset wake-up signal. Any number of Set calls before a
// Wait collapse into one wake-up.
type Event struct {
	ch chan struct{}
}

func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Set wakes the waiter, or the next one to arrive.
func (e *Event) Set() {
	if e == nil {
		return
	}
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the event is set, the timeout passes or ctx is done. It
// reports whether the event was set.
func (e *Event) Wait(ctx context.Context, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-e.ch:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}
