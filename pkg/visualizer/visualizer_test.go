package visualizer

import (
	"math"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flow-player/pkg/audio"
)

const testRate = 44100

// sineWindow writes one window of a full-scale stereo tone sitting exactly on
// spectrum bin k.
func sineWindow(buf *audio.Buffer, k int, start float64) {
	samples := make([]int16, WindowSize*2)
	for i := 0; i < WindowSize; i++ {
		s := int16(32000 * math.Sin(2*math.Pi*float64(k)*float64(i)/WindowSize))
		samples[2*i] = s
		samples[2*i+1] = s
	}
	buf.Write(samples, start)
}

func peakBar(f BarFrame) int {
	best := 0
	for i, b := range f.Bars {
		if b > f.Bars[best] {
			best = i
		}
	}
	return best
}

func TestFFT(t *testing.T) {
	Convey("The transform of a bin-centred cosine puts all power in that bin", t, func() {
		f := newFFT(16)
		re := make([]float64, 16)
		im := make([]float64, 16)
		for i := range re {
			re[i] = math.Cos(2 * math.Pi * 3 * float64(i) / 16)
		}
		f.transform(re, im)
		pow := make([]float64, 9)
		f.power(re, im, pow)

		So(pow[3], ShouldAlmostEqual, 64, 1e-6)
		for k, p := range pow {
			if k != 3 {
				So(p, ShouldAlmostEqual, 0, 1e-6)
			}
		}
	})

	Convey("A constant signal lands in the DC bin scaled by a quarter", t, func() {
		f := newFFT(8)
		re := []float64{1, 1, 1, 1, 1, 1, 1, 1}
		im := make([]float64, 8)
		f.transform(re, im)
		pow := make([]float64, 5)
		f.power(re, im, pow)
		So(pow[0], ShouldAlmostEqual, 16, 1e-9)
	})
}

func TestVisualizer(t *testing.T) {
	Convey("Given a visualizer and a 44.1 kHz stereo buffer", t, func() {
		v := New()
		buf := audio.NewBuffer(audio.Format{SampleRate: testRate, Channels: 2})

		for _, k := range []int{4, 40, 200} {
			k := k
			Convey("a tone on bin "+strconv.Itoa(k)+" peaks in its bar", func() {
				sineWindow(buf, k, 0)
				So(v.Update(buf), ShouldEqual, 1)
				So(v.Step(1), ShouldBeTrue)

				want := BarForBin(k)
				got := peakBar(v.Bars())
				So(math.Abs(float64(got-want)), ShouldBeLessThanOrEqualTo, 1)
				So(v.Bars().Bars[want], ShouldBeGreaterThan, 0)
			})
		}

		Convey("a full-scale tone reaches close to one after smoothing settles", func() {
			for i := 0; i < 40; i++ {
				sineWindow(buf, 40, float64(i)*0.01)
			}
			So(v.Update(buf), ShouldEqual, 40)
			v.Step(10)
			So(v.Bars().Bars[BarForBin(40)], ShouldBeBetween, 0.8, 1.05)
		})

		Convey("silence produces no bars", func() {
			buf.AppendSilence(float64(WindowSize)/testRate, 0)
			v.Update(buf)
			v.Step(1)
			for _, b := range v.Bars().Bars {
				So(b, ShouldEqual, 0)
			}
		})

		Convey("less than a window is left in the buffer", func() {
			buf.Write(make([]int16, 100), 0)
			So(v.Update(buf), ShouldEqual, 0)
			So(buf.Available(), ShouldEqual, 50)
		})

		Convey("Step only merges frames that are due", func() {
			sineWindow(buf, 40, 0)
			v.Update(buf)
			sineWindow(buf, 40, 5)
			v.Update(buf)

			So(v.Step(-1), ShouldBeFalse)
			So(v.Step(1), ShouldBeTrue)
			So(v.Pending(), ShouldEqual, 1)
			So(v.Bars().Time, ShouldEqual, 0)
		})

		Convey("Step smooths with three parts old and one part new", func() {
			sineWindow(buf, 40, 0)
			v.Update(buf)
			v.Step(0)
			first := v.Bars().Bars[BarForBin(40)]

			sineWindow(buf, 40, 1)
			v.Update(buf)
			v.Step(1)
			second := v.Bars().Bars[BarForBin(40)]

			raw := first * 4
			So(second, ShouldAlmostEqual, (3*first+raw)/4, 1e-9)
		})

		Convey("frames arriving out of order are stepped in time order", func() {
			sineWindow(buf, 40, 2)
			v.Update(buf)
			sineWindow(buf, 4, 1)
			v.Update(buf)

			v.Step(1.5)
			So(peakBar(v.Bars()), ShouldEqual, BarForBin(4))
		})

		Convey("Clear drops everything", func() {
			sineWindow(buf, 40, 0)
			v.Update(buf)
			v.Step(0)
			sineWindow(buf, 40, 1)
			v.Update(buf)
			v.Clear()
			So(v.Pending(), ShouldEqual, 0)
			So(v.Bars(), ShouldResemble, BarFrame{})
		})
	})
}

func TestBarForBin(t *testing.T) {
	Convey("Bars are monotonic over the bins", t, func() {
		last := 0
		for k := 0; k <= WindowSize/2; k++ {
			b := BarForBin(k)
			So(b, ShouldBeGreaterThanOrEqualTo, last)
			So(b, ShouldBeLessThan, BarCount)
			last = b
		}
		So(BarForBin(WindowSize/2), ShouldEqual, BarCount-1)
	})
}

func TestRGBA(t *testing.T) {
	Convey("Given a frame with one full bar", t, func() {
		var bars BarFrame
		bars.Bars[0] = 1

		img := RGBA(bars, DefaultTheme, 200, 50)
		So(img.Bounds().Dx(), ShouldEqual, 200)
		So(img.Bounds().Dy(), ShouldEqual, 50)

		Convey("the bar is painted and the rest stays transparent", func() {
			So(img.RGBAAt(1, 40).A, ShouldBeGreaterThan, 0)
			So(img.RGBAAt(199, 40).A, ShouldEqual, 0)
		})
	})
}
