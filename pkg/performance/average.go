package performance

import (
	"sync"
	"time"
)

// RollingAverage keeps the mean of the last N durations.
type RollingAverage struct {
	mu      sync.RWMutex
	samples []time.Duration
	sum     time.Duration
	index   int
	filled  bool
}

// NewRollingAverage creates an average over window samples.
func NewRollingAverage(window int) *RollingAverage {
	return &RollingAverage{samples: make([]time.Duration, max(window, 1))}
}

// Add records one sample, evicting the oldest once the window is full.
func (r *RollingAverage) Add(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filled {
		r.sum -= r.samples[r.index]
	}
	r.samples[r.index] = d
	r.sum += d

	r.index++
	if r.index == len(r.samples) {
		r.index = 0
		r.filled = true
	}
}

// Average returns zero until a sample was added.
func (r *RollingAverage) Average() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.count()
	if n == 0 {
		return 0
	}
	return r.sum / time.Duration(n)
}

// Count is the number of samples in the window.
func (r *RollingAverage) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count()
}

func (r *RollingAverage) count() int {
	if r.filled {
		return len(r.samples)
	}
	return r.index
}

// Reset drops every sample.
func (r *RollingAverage) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.samples)
	r.sum = 0
	r.index = 0
	r.filled = false
}
