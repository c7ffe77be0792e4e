package mpeg

import (
	"encoding/binary"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPTSCorrector(t *testing.T) {
	Convey("Given a fresh corrector", t, func() {
		c := NewPTSCorrector()

		Convey("monotonic input passes through", func() {
			for _, ts := range []int64{0, 40, 80, 120} {
				So(c.Guess(ts, ts), ShouldEqual, ts)
			}
		})

		Convey("unknown timestamps yield zero before anything was seen", func() {
			So(c.Guess(NoPTS, NoPTS), ShouldEqual, 0)
		})

		Convey("unknown timestamps repeat the last result", func() {
			c.Guess(100, 100)
			So(c.Guess(NoPTS, NoPTS), ShouldEqual, 100)
		})

		Convey("a missing pts falls back to dts", func() {
			c.Guess(10, 10)
			So(c.Guess(NoPTS, 20), ShouldEqual, 20)
		})

		Convey("after repeated pts faults dts is preferred", func() {
			c.Guess(100, 10)
			c.Guess(50, 20)
			c.Guess(40, 30)
			So(c.FaultyPTS, ShouldEqual, 2)
			So(c.FaultyDTS, ShouldEqual, 0)
			So(c.Guess(200, 150), ShouldEqual, 150)
		})

		Convey("results never decrease on glitchy input", func() {
			inputs := [][2]int64{
				{0, 0}, {40, 40}, {20, NoPTS}, {NoPTS, NoPTS}, {80, 30},
				{80, 80}, {-5, -5}, {120, 100}, {NoPTS, 90}, {160, 160},
				{1000, 1000}, {200, 200}, {240, 240},
			}
			last := int64(-1 << 62)
			for _, in := range inputs {
				got := c.Guess(in[0], in[1])
				So(got, ShouldBeGreaterThanOrEqualTo, last)
				last = got
			}
		})

		Convey("Reset forgets history", func() {
			c.Guess(1000, 1000)
			c.Reset()
			So(c.Guess(5, 5), ShouldEqual, 5)
			So(c.FaultyPTS, ShouldEqual, 0)
		})
	})
}

func TestRational(t *testing.T) {
	Convey("Rational converts both ways", t, func() {
		r := Rational{Num: 1, Den: 90000}
		So(r.Seconds(90000), ShouldEqual, 1.0)
		So(r.Timestamp(2.5), ShouldEqual, 225000)
		So(Rational{}.Seconds(5), ShouldEqual, 0)
	})
}

func TestNormalizeRotation(t *testing.T) {
	Convey("Rotations snap to quarter turns", t, func() {
		So(normalizeRotation(0), ShouldEqual, 0)
		So(normalizeRotation(90), ShouldEqual, 90)
		So(normalizeRotation(-90), ShouldEqual, 270)
		So(normalizeRotation(450), ShouldEqual, 90)
		So(normalizeRotation(181), ShouldEqual, 180)
	})
}

// displayMatrix builds the matrix a muxer writes for a clockwise rotation.
func displayMatrix(clockwise float64) []byte {
	rad := -clockwise * math.Pi / 180
	fixed := func(v float64) uint32 { return uint32(int32(math.Round(v * (1 << 16)))) }
	values := []uint32{
		fixed(math.Cos(rad)), fixed(-math.Sin(rad)), 0,
		fixed(math.Sin(rad)), fixed(math.Cos(rad)), 0,
		0, 0, 1 << 30,
	}
	out := make([]byte, 0, 36)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func TestDisplayMatrixRotation(t *testing.T) {
	Convey("Display matrices decode to clockwise rotations", t, func() {
		for _, deg := range []float64{0, 90, 180, 270, -90} {
			got, ok := DisplayMatrixRotation(displayMatrix(deg))
			So(ok, ShouldBeTrue)
			So(normalizeRotation(got), ShouldEqual, normalizeRotation(int(deg)))
		}

		Convey("a portrait phone recording turns upright", func() {
			got, ok := DisplayMatrixRotation(displayMatrix(90))
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, 90)
		})

		Convey("short or degenerate matrices are rejected", func() {
			_, ok := DisplayMatrixRotation(nil)
			So(ok, ShouldBeFalse)
			_, ok = DisplayMatrixRotation(make([]byte, 36))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestHandle(t *testing.T) {
	Convey("Native resources are freed on the last release", t, func() {
		freed := 0
		p := NewPacket(0, 1, 1, nil, func() { freed++ })
		p.Retain()
		p.Release()
		So(freed, ShouldEqual, 0)
		p.Release()
		So(freed, ShouldEqual, 1)
	})
}
