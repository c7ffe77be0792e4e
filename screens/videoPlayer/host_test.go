package videoPlayer

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHost(t *testing.T) {
	Convey("Given a host", t, func() {
		h := NewHost(nil)

		Convey("queued callbacks run in order on Drain only", func() {
			var got []int
			h.QueueUI(func() { got = append(got, 1) })
			h.QueueUI(func() { got = append(got, 2) })
			So(got, ShouldBeEmpty)
			So(h.Drain(), ShouldEqual, 2)
			So(got, ShouldResemble, []int{1, 2})
			So(h.Drain(), ShouldEqual, 0)
		})

		Convey("callbacks queued from other goroutines are not lost", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			count := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					h.QueueUI(func() {
						mu.Lock()
						count++
						mu.Unlock()
					})
				}()
			}
			wg.Wait()
			h.Drain()
			So(count, ShouldEqual, 50)
		})

		Convey("invalidation is reported once", func() {
			So(h.TakeInvalidation(), ShouldBeFalse)
			h.InvalidateView("seek")
			h.InvalidateView("play")
			So(h.TakeInvalidation(), ShouldBeTrue)
			So(h.TakeInvalidation(), ShouldBeFalse)
		})
	})
}
