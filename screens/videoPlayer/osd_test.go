package videoPlayer

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/veandco/go-sdl2/sdl"

	"flow-player/pkg/playback"
)

func TestPlacement(t *testing.T) {
	Convey("Given a 1920x1080 screen", t, func() {
		Convey("wide video is letterboxed top and bottom", func() {
			r := placement(1920, 800, 1920, 1080, 0)
			So(r, ShouldResemble, sdl.Rect{X: 0, Y: 140, W: 1920, H: 800})
		})

		Convey("a quarter turn fits the rotated size", func() {
			r := placement(1920, 1080, 1920, 1080, 90)
			// Displayed 1080 wide by 1920 tall, scaled to 607x1080.
			So(r.W, ShouldEqual, 1080)
			So(r.H, ShouldEqual, 607)
			So(r.X, ShouldEqual, 420)
			So(r.Y, ShouldEqual, 236)
		})

		Convey("an empty texture places nothing", func() {
			So(placement(0, 0, 1920, 1080, 0), ShouldResemble, sdl.Rect{})
		})
	})
}

func TestFormatClock(t *testing.T) {
	Convey("Clock strings", t, func() {
		So(formatClock(0), ShouldEqual, "0:00")
		So(formatClock(65.9), ShouldEqual, "1:05")
		So(formatClock(3725), ShouldEqual, "1:02:05")
		So(formatClock(-3), ShouldEqual, "0:00")
	})

	Convey("Status lines", t, func() {
		So(statusLine(playback.Playing, 0.8, false), ShouldEqual, "playing  vol 80%")
		So(statusLine(playback.Paused, 0.8, true), ShouldEqual, "paused  muted")
	})
}

func TestCopyRows(t *testing.T) {
	Convey("Given a 2x2 RGBA image", t, func() {
		src := []byte{
			1, 1, 1, 1, 2, 2, 2, 2,
			3, 3, 3, 3, 4, 4, 4, 4,
		}

		Convey("a matching pitch copies in one go", func() {
			dst := make([]byte, 16)
			copyRows(dst, 8, src, 8, 8, 2)
			So(dst, ShouldResemble, src)
		})

		Convey("a padded pitch keeps rows aligned", func() {
			dst := make([]byte, 24)
			copyRows(dst, 12, src, 8, 8, 2)
			So(dst[:8], ShouldResemble, src[:8])
			So(dst[12:20], ShouldResemble, src[8:])
			So(dst[8:12], ShouldResemble, []byte{0, 0, 0, 0})
		})

		Convey("a short source stops early", func() {
			dst := make([]byte, 24)
			copyRows(dst, 12, src[:8], 8, 8, 2)
			So(dst[12:20], ShouldResemble, make([]byte, 8))
		})
	})
}

func TestRestartGuard(t *testing.T) {
	Convey("Given a looping screen at the end of generation 3", t, func() {
		var r restartGuard
		So(r.request(3), ShouldBeTrue)

		Convey("later ticks before the seek runs queue nothing more", func() {
			So(r.request(3), ShouldBeFalse)
			So(r.request(3), ShouldBeFalse)
		})

		Convey("reaching the end again after the restart queues one more", func() {
			So(r.request(4), ShouldBeTrue)
			So(r.request(4), ShouldBeFalse)
		})
	})
}
