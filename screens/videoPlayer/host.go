package videoPlayer

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Host marshals player callbacks onto the SDL thread. Callbacks queued from
// the player goroutines run on the next Drain.
type Host struct {
	log *logrus.Entry

	mu      sync.Mutex
	pending []func()

	dirty  atomic.Bool
	reason atomic.Value
}

func NewHost(log *logrus.Entry) *Host {
	if log == nil {
		log = logrus.WithField("component", "host")
	}
	return &Host{log: log}
}

// InvalidateView asks for a redraw on the next frame.
func (h *Host) InvalidateView(reason string) {
	h.reason.Store(reason)
	h.dirty.Store(true)
}

// QueueUI defers fn to the SDL thread.
func (h *Host) QueueUI(fn func()) {
	h.mu.Lock()
	h.pending = append(h.pending, fn)
	h.mu.Unlock()
	h.InvalidateView("ui")
}

// Drain runs the queued callbacks in order and returns how many ran.
func (h *Host) Drain() int {
	h.mu.Lock()
	fns := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// TakeInvalidation reports whether a redraw was requested since the last
// call, clearing the request.
func (h *Host) TakeInvalidation() bool {
	if !h.dirty.Swap(false) {
		return false
	}
	if r, ok := h.reason.Load().(string); ok {
		h.log.WithField("reason", r).Trace("view invalidated")
	}
	return true
}
