// Package queue provides the bounded FIFO used between the reader, the
// decoders and the presenter of a playback session.
package queue

import "sync"

// Capacity is the back-pressure threshold. A queue holding this many units
// reports ShouldReceive() == false; producers stop feeding it until a
// consumer pops.
const Capacity = 16

// Item is a unit that can be queued: it has a presentation time in seconds
// and a reference that must be dropped when the queue discards it.
type Item interface {
	Time() float64
	Release()
}

// Queue is a thread-safe FIFO with a soft capacity. Push never blocks and
// never rejects; the capacity is only a signal.
type Queue[T Item] struct {
	mu    sync.RWMutex
	items []T
}

// New creates an empty queue.
func New[T Item]() *Queue[T] {
	return &Queue[T]{items: make([]T, 0, Capacity)}
}

// Push appends an item at the back.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Pop removes and returns the oldest item. It returns false when empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Front returns the oldest item without removing it.
func (q *Queue[T]) Front() (T, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// PopIf removes the front item only when accept returns true for it. accept
// runs under the queue lock and must not call back into the queue.
func (q *Queue[T]) PopIf(accept func(T) bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 || !accept(q.items[0]) {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.Size() == 0
}

// Size returns the number of queued items.
func (q *Queue[T]) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// FrontTime returns the presentation time of the oldest item.
func (q *Queue[T]) FrontTime() (float64, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].Time(), true
}

// BackTime returns the presentation time of the newest item.
func (q *Queue[T]) BackTime() (float64, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[len(q.items)-1].Time(), true
}

// ShouldReceive reports whether producers may keep feeding the queue.
func (q *Queue[T]) ShouldReceive() bool {
	return q.Size() < Capacity
}

// Clear drops every queued item and releases it.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	items := q.items
	q.items = make([]T, 0, Capacity)
	q.mu.Unlock()

	for _, item := range items {
		item.Release()
	}
}
