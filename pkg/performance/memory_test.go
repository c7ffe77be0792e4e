package performance

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPressureFor(t *testing.T) {
	Convey("Pressure grows as memory shrinks", t, func() {
		So(PressureFor(4096), ShouldEqual, PressureNone)
		So(PressureFor(500), ShouldEqual, PressureLow)
		So(PressureFor(300), ShouldEqual, PressureMedium)
		So(PressureFor(150), ShouldEqual, PressureHigh)
		So(PressureFor(10), ShouldEqual, PressureCritical)
		So(PressureCritical.String(), ShouldEqual, "critical")
	})
}
