package history

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

func TestStore(t *testing.T) {
	Convey("Given an empty history", t, func() {
		fs := afero.NewMemMapFs()
		s := Open(fs, "/cache/history.json")

		Convey("nothing is resumable", func() {
			_, ok := s.Position("/media/a.mkv")
			So(ok, ShouldBeFalse)
		})

		Convey("a remembered position is returned", func() {
			So(s.Remember("/media/a.mkv", 42.5, 600), ShouldBeNil)
			pos, ok := s.Position("/media/a.mkv")
			So(ok, ShouldBeTrue)
			So(pos, ShouldEqual, 42.5)

			Convey("and survives reopening the store", func() {
				pos, ok := Open(fs, "/cache/history.json").Position("/media/a.mkv")
				So(ok, ShouldBeTrue)
				So(pos, ShouldEqual, 42.5)
			})

			Convey("and is cleared when playback reaches the end", func() {
				So(s.Remember("/media/a.mkv", 599, 600), ShouldBeNil)
				_, ok := s.Position("/media/a.mkv")
				So(ok, ShouldBeFalse)
			})

			Convey("and is dropped by Forget", func() {
				So(s.Forget("/media/a.mkv"), ShouldBeNil)
				_, ok := s.Position("/media/a.mkv")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("positions near the start are not kept", func() {
			So(s.Remember("/media/b.mp3", 1.5, 180), ShouldBeNil)
			_, ok := s.Position("/media/b.mp3")
			So(ok, ShouldBeFalse)
		})

		Convey("the oldest entries are evicted past the limit", func() {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			i := 0
			s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
			for i = 0; i <= maxEntries; i++ {
				So(s.Remember(fmt.Sprintf("/media/%03d.mkv", i), 10, 100), ShouldBeNil)
			}
			_, ok := s.Position("/media/000.mkv")
			So(ok, ShouldBeFalse)
			_, ok = s.Position(fmt.Sprintf("/media/%03d.mkv", maxEntries))
			So(ok, ShouldBeTrue)
		})
	})
}
