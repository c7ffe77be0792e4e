package queue

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type unit struct {
	t        float64
	released *int
}

func (u unit) Time() float64 { return u.t }

func (u unit) Release() {
	if u.released != nil {
		*u.released++
	}
}

func TestQueue(t *testing.T) {
	Convey("Given an empty queue", t, func() {
		q := New[unit]()

		So(q.IsEmpty(), ShouldBeTrue)
		So(q.ShouldReceive(), ShouldBeTrue)

		_, ok := q.Pop()
		So(ok, ShouldBeFalse)
		_, ok = q.FrontTime()
		So(ok, ShouldBeFalse)

		Convey("Items come out in push order", func() {
			for i := 0; i < 5; i++ {
				q.Push(unit{t: float64(i)})
			}
			front, _ := q.FrontTime()
			back, _ := q.BackTime()
			So(front, ShouldEqual, 0)
			So(back, ShouldEqual, 4)

			for i := 0; i < 5; i++ {
				u, ok := q.Pop()
				So(ok, ShouldBeTrue)
				So(u.t, ShouldEqual, float64(i))
			}
			So(q.IsEmpty(), ShouldBeTrue)
		})

		Convey("Front peeks without removing", func() {
			q.Push(unit{t: 3})
			u, ok := q.Front()
			So(ok, ShouldBeTrue)
			So(u.t, ShouldEqual, 3)
			So(q.Size(), ShouldEqual, 1)
		})

		Convey("Back-pressure flips exactly at capacity", func() {
			for i := 0; i < Capacity-1; i++ {
				q.Push(unit{t: float64(i)})
				So(q.ShouldReceive(), ShouldBeTrue)
			}
			q.Push(unit{t: Capacity})
			So(q.Size(), ShouldEqual, Capacity)
			So(q.ShouldReceive(), ShouldBeFalse)

			// Pushing past the signal is allowed and keeps it false.
			q.Push(unit{t: Capacity + 1})
			So(q.ShouldReceive(), ShouldBeFalse)

			q.Pop()
			So(q.ShouldReceive(), ShouldBeFalse)
			q.Pop()
			So(q.ShouldReceive(), ShouldBeTrue)
		})

		Convey("Clear releases every queued item", func() {
			released := 0
			for i := 0; i < 4; i++ {
				q.Push(unit{t: float64(i), released: &released})
			}
			q.Clear()
			So(released, ShouldEqual, 4)
			So(q.IsEmpty(), ShouldBeTrue)
		})
	})
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := New[unit]()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(unit{t: float64(i)})
			}
		}()
	}

	popped := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		if _, ok := q.Pop(); ok {
			popped++
			continue
		}
		select {
		case <-done:
			for {
				if _, ok := q.Pop(); !ok {
					break
				}
				popped++
			}
			if popped != 400 {
				t.Errorf("popped: got %d, want 400", popped)
			}
			return
		default:
		}
	}
}

func TestPopIf(t *testing.T) {
	Convey("Given a queue with two items", t, func() {
		q := New[unit]()
		q.Push(unit{t: 1})
		q.Push(unit{t: 2})

		Convey("a rejected front stays queued", func() {
			_, ok := q.PopIf(func(u unit) bool { return u.t > 1 })
			So(ok, ShouldBeFalse)
			So(q.Size(), ShouldEqual, 2)
		})

		Convey("an accepted front is removed", func() {
			u, ok := q.PopIf(func(u unit) bool { return u.t == 1 })
			So(ok, ShouldBeTrue)
			So(u.t, ShouldEqual, 1)
			front, _ := q.FrontTime()
			So(front, ShouldEqual, 2)
		})

		Convey("an empty queue never calls accept", func() {
			q.Clear()
			called := false
			_, ok := q.PopIf(func(unit) bool { called = true; return true })
			So(ok, ShouldBeFalse)
			So(called, ShouldBeFalse)
		})
	})
}
