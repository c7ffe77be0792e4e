package performance

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRollingAverage(t *testing.T) {
	Convey("Given a window of three", t, func() {
		r := NewRollingAverage(3)

		Convey("it is zero when empty", func() {
			So(r.Average(), ShouldEqual, 0)
			So(r.Count(), ShouldEqual, 0)
		})

		Convey("it averages what it has", func() {
			r.Add(10 * time.Millisecond)
			r.Add(20 * time.Millisecond)
			So(r.Average(), ShouldEqual, 15*time.Millisecond)
		})

		Convey("old samples fall out of the window", func() {
			for _, d := range []time.Duration{100, 1, 2, 3} {
				r.Add(d * time.Millisecond)
			}
			So(r.Count(), ShouldEqual, 3)
			So(r.Average(), ShouldEqual, 2*time.Millisecond)
		})

		Convey("Reset empties it", func() {
			r.Add(time.Second)
			r.Reset()
			So(r.Count(), ShouldEqual, 0)
			So(r.Average(), ShouldEqual, 0)
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Stats aggregate counters into a report", t, func() {
		s := NewStats(10)
		s.RecordVideoDecode(4, 40*time.Millisecond)
		s.RecordVideoDecode(0, time.Second)
		s.RecordStaleVideo()
		s.RecordPresent(2 * time.Millisecond)
		s.RecordSeek()

		r := s.Report()
		So(r.VideoFrames, ShouldEqual, 4)
		So(r.AvgVideoMs, ShouldEqual, 10)
		So(r.StaleVideo, ShouldEqual, 1)
		So(r.DropRate, ShouldEqual, 25)
		So(r.Healthy, ShouldBeFalse)
		So(r.Presented, ShouldEqual, 1)
		So(r.Seeks, ShouldEqual, 1)
	})
}
