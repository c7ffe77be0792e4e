package audio

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuffer(t *testing.T) {
	Convey("Given a stereo 1 kHz buffer", t, func() {
		b := NewBuffer(Format{SampleRate: 1000, Channels: 2})

		Convey("Write stamps the start time of an empty buffer only", func() {
			b.Write([]int16{1, 1, 2, 2}, 3.0)
			b.Write([]int16{3, 3}, 9.0)
			So(b.StartTime(), ShouldEqual, 3.0)
			So(b.Available(), ShouldEqual, 3)
			So(b.EndTime(), ShouldAlmostEqual, 3.003, 1e-9)
		})

		Convey("Read advances the start time by whole frames", func() {
			b.Write([]int16{1, 1, 2, 2, 3, 3}, 1.0)
			dst := make([]int16, 3)
			n := b.Read(dst)
			So(n, ShouldEqual, 2)
			So(dst[:n], ShouldResemble, []int16{1, 1})
			So(b.StartTime(), ShouldAlmostEqual, 1.001, 1e-9)
			So(b.Available(), ShouldEqual, 2)
		})

		Convey("Draining fully lets the next write restamp", func() {
			b.Write([]int16{1, 1}, 1.0)
			b.Read(make([]int16, 2))
			b.Write([]int16{5, 5}, 7.5)
			So(b.StartTime(), ShouldEqual, 7.5)
		})

		Convey("AppendSilence adds zeros for the duration", func() {
			b.AppendSilence(1.0, 4.0)
			So(b.Seconds(), ShouldAlmostEqual, 1.0, 1e-9)
			dst := make([]int16, 2000)
			So(b.Read(dst), ShouldEqual, 2000)
			for _, s := range dst {
				So(s, ShouldEqual, 0)
			}
		})

		Convey("Reset clears samples and records the generation", func() {
			b.Write([]int16{1, 1}, 1.0)
			b.Reset(7)
			So(b.Available(), ShouldEqual, 0)
			So(b.Generation(), ShouldEqual, 7)
		})

		Convey("Skip drops frames", func() {
			b.Write([]int16{1, 1, 2, 2, 3, 3}, 0)
			So(b.Skip(2), ShouldEqual, 2)
			dst := make([]int16, 2)
			b.Read(dst)
			So(dst, ShouldResemble, []int16{3, 3})
		})
	})
}

func TestApplyVolume(t *testing.T) {
	Convey("ApplyVolume", t, func() {
		s := []int16{1000, -1000}

		Convey("halves at 0.5", func() {
			ApplyVolume(s, 0.5, false)
			So(s, ShouldResemble, []int16{500, -500})
		})
		Convey("silences when muted", func() {
			ApplyVolume(s, 1, true)
			So(s, ShouldResemble, []int16{0, 0})
		})
		Convey("keeps samples at full volume", func() {
			ApplyVolume(s, 1, false)
			So(s, ShouldResemble, []int16{1000, -1000})
		})
	})
}
