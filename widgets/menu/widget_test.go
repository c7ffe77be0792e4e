package menu

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildDeviceItems(t *testing.T) {
	Convey("Given the outputs reported by the system", t, func() {
		devices := []string{"Speakers", "HDMI", "Speakers", ""}

		Convey("the default comes first and duplicates collapse", func() {
			items := BuildDeviceItems(devices, "HDMI")
			So(len(items), ShouldEqual, 3)
			So(items[0].Title, ShouldEqual, defaultDevice)
			So(items[0].ID, ShouldEqual, "")
			So(items[2].Value, ShouldEqual, "active")
			So(IndexOf(items, "HDMI"), ShouldEqual, 2)
		})

		Convey("an unknown device selects the default", func() {
			items := BuildDeviceItems(devices, "")
			So(items[0].Value, ShouldEqual, "active")
			So(IndexOf(items, "USB"), ShouldEqual, 0)
		})
	})
}

func TestWidget(t *testing.T) {
	Convey("Given a shown menu", t, func() {
		w := NewWidget("Audio output")
		w.Show([]Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}, 1)
		So(w.Visible(), ShouldBeTrue)
		So(w.SelectedItem().ID, ShouldEqual, "b")

		Convey("the selection wraps both ways", func() {
			w.MoveSelection(2)
			So(w.SelectedItem().ID, ShouldEqual, "a")
			w.MoveSelection(-1)
			So(w.SelectedItem().ID, ShouldEqual, "c")
		})

		Convey("an out of range selection starts at the top", func() {
			w.Show(w.Items(), 7)
			So(w.Selected(), ShouldEqual, 0)
		})

		Convey("an empty menu ignores movement", func() {
			w.Show(nil, 0)
			w.MoveSelection(1)
			So(w.SelectedItem(), ShouldResemble, Item{})
			w.Hide()
			So(w.Visible(), ShouldBeFalse)
		})
	})
}
