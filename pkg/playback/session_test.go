package playback

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flow-player/pkg/mpeg"
	"flow-player/pkg/mpeg/mpegtest"
	"flow-player/pkg/visualizer"
)

type sessionFixture struct {
	s       *Session
	backend *mpegtest.Backend
	clock   *fakeClock
	host    *fakeHost
	pt, vt  *AudioTarget
	pr, vr  *mpegtest.Resampler
}

func newFixture(files map[string]mpegtest.File) *sessionFixture {
	backend := mpegtest.New()
	for path, f := range files {
		backend.Add(path, f)
	}
	fx := &sessionFixture{backend: backend, clock: &fakeClock{}, host: &fakeHost{}}
	fx.s = NewSession(SessionConfig{
		Backend:    backend,
		Host:       fx.host,
		Clock:      fx.clock.Now,
		Visualizer: visualizer.New(),
	})
	fx.pt, fx.vt, fx.pr, fx.vr = testTargets()
	return fx
}

// pump runs one round of every worker synchronously.
func (fx *sessionFixture) pump() {
	fx.s.ProcessIO(nil, nil)
	fx.s.ProcessVideo(nil)
	fx.s.ProcessAudio(fx.pt, fx.vt, nil)
}

func (fx *sessionFixture) flushes() int32 {
	return fx.pr.Flushes.Load() + fx.vr.Flushes.Load()
}

func TestSessionOpen(t *testing.T) {
	Convey("Given a backend with a ten second file", t, func() {
		fx := newFixture(map[string]mpegtest.File{"av.mp4": mpegtest.AV(10)})
		s := fx.s
		defer s.Close()

		So(s.State(), ShouldEqual, Detached)

		Convey("a missing file leaves the session detached", func() {
			So(s.Open(Item{Path: "missing.mp4"}, DefaultOpenOptions()), ShouldBeFalse)
			So(s.State(), ShouldEqual, Detached)
			So(s.Seek(1, false), ShouldBeFalse)
		})

		Convey("opening without a saved position starts at zero", func() {
			So(s.Open(Item{Path: "av.mp4"}, DefaultOpenOptions()), ShouldBeTrue)
			So(s.State(), ShouldEqual, Playing)
			So(s.Generation(), ShouldEqual, 1)
			So(s.Position(0), ShouldEqual, 0)
			So(s.EndTime(), ShouldEqual, 10)
			So(s.Info().HasAudio, ShouldBeTrue)

			fx.pump()
			s.PublishAudioClock(0, 0, 1)
			s.UpdateForPresent(0)
			So(s.PendingSync(), ShouldBeFalse)
			So(s.HasEnded(0), ShouldBeFalse)
			So(s.HasEnded(9.99), ShouldBeFalse)
			So(s.HasEnded(10), ShouldBeTrue)

			Convey("and a second open is refused", func() {
				So(s.Open(Item{Path: "av.mp4"}, DefaultOpenOptions()), ShouldBeFalse)
			})
		})

		Convey("AutoPlay off opens paused", func() {
			opts := DefaultOpenOptions()
			opts.AutoPlay = false
			So(s.Open(Item{Path: "av.mp4"}, opts), ShouldBeTrue)
			So(s.State(), ShouldEqual, Paused)
			So(s.HasEnded(100), ShouldBeFalse)
		})

		Convey("a saved position well inside the file is resumed", func() {
			opts := DefaultOpenOptions()
			opts.UseLastPosition = true
			So(s.Open(Item{Path: "av.mp4", LastPosition: 6}, opts), ShouldBeTrue)
			So(s.Generation(), ShouldEqual, 2)
			So(s.Position(0), ShouldEqual, 6)
		})

		Convey("a saved position near the end is ignored", func() {
			opts := DefaultOpenOptions()
			opts.UseLastPosition = true
			So(s.Open(Item{Path: "av.mp4", LastPosition: 9}, opts), ShouldBeTrue)
			So(s.Generation(), ShouldEqual, 1)
			So(s.Position(0), ShouldEqual, 0)
		})
	})
}

func TestSessionSeek(t *testing.T) {
	Convey("Given an open audio+video session that has decoded ahead", t, func() {
		fx := newFixture(map[string]mpegtest.File{"av.mp4": mpegtest.AV(10)})
		s := fx.s
		defer s.Close()
		So(s.Open(Item{Path: "av.mp4"}, DefaultOpenOptions()), ShouldBeTrue)
		fx.pump()
		s.UpdateForPresent(0)
		So(fx.flushes(), ShouldEqual, 2)
		So(fx.pt.Buffer.Seconds(), ShouldAlmostEqual, maxAudioBuffered, 1e-9)

		Convey("a scrub followed by a release bumps the generation once per call and flushes each resampler once", func() {
			before := fx.flushes()
			So(s.Seek(5, true), ShouldBeTrue)
			So(s.Generation(), ShouldEqual, 2)
			So(s.Scrubbing(), ShouldBeTrue)
			So(s.Seek(5, false), ShouldBeTrue)
			So(s.Generation(), ShouldEqual, 3)

			fx.pump()
			So(fx.flushes()-before, ShouldEqual, 2)
			So(fx.backend.Seeks.Load(), ShouldEqual, 1)
			So(fx.pt.Buffer.Generation(), ShouldEqual, 3)
			So(fx.pt.Buffer.StartTime(), ShouldAlmostEqual, 5.0, 1e-9)

			So(s.UpdateForPresent(0.1), ShouldBeTrue)
			So(s.LastFrameTime(), ShouldAlmostEqual, 5.0, 1e-9)
			So(s.Position(0.1), ShouldEqual, 5)
		})

		Convey("frames from before a seek are never presented", func() {
			s.Seek(2, false)
			So(s.UpdateForPresent(0.1), ShouldBeFalse)
			So(s.Stats().StaleVideo, ShouldBeGreaterThan, 0)

			fx.pump()
			So(s.UpdateForPresent(0.2), ShouldBeTrue)
			So(s.current.Generation, ShouldEqual, s.Generation())
			So(s.LastFrameTime(), ShouldAlmostEqual, 2.0, 1e-9)
		})

		Convey("stale audio frames are dropped, not resampled", func() {
			s.Seek(3, false)
			frames := fx.pr.Frames.Load()
			s.ProcessAudio(fx.pt, fx.vt, nil)
			So(s.Stats().StaleAudio, ShouldBeGreaterThan, 0)
			So(fx.pr.Frames.Load(), ShouldEqual, frames)
			So(fx.pt.Buffer.Available(), ShouldEqual, 0)
		})

		Convey("generations only ever increase", func() {
			last := s.Generation()
			for _, pos := range []float64{3, 1, 8, 8, 0, 20, -4} {
				s.Seek(pos, pos == 8)
				So(s.Generation(), ShouldEqual, last+1)
				last = s.Generation()
			}
			So(s.Position(0), ShouldEqual, 0)
		})

		Convey("a seek is clamped to the media", func() {
			s.Seek(42, false)
			So(s.Position(0), ShouldEqual, 10)
		})
	})
}

func TestSessionSeekTrim(t *testing.T) {
	Convey("Given a file with a keyframe every second", t, func() {
		f := mpegtest.AV(10)
		f.GOP = 25
		fx := newFixture(map[string]mpegtest.File{"gop.mp4": f})
		s := fx.s
		defer s.Close()
		So(s.Open(Item{Path: "gop.mp4"}, DefaultOpenOptions()), ShouldBeTrue)

		s.Seek(7, false)
		fx.pump()
		s.UpdateForPresent(0)
		So(s.LastFrameTime(), ShouldAlmostEqual, 7, 1e-9)

		Convey("a backward seek drops the audio leading up to the target", func() {
			s.Seek(4.25, false)
			fx.pump()
			So(fx.backend.Seeks.Load(), ShouldEqual, 2)
			So(s.Stats().SkippedAudio, ShouldEqual, 2)
			So(fx.pt.Buffer.StartTime(), ShouldAlmostEqual, 4.25, 1e-9)
			So(fx.vt.Buffer.StartTime(), ShouldAlmostEqual, 4.25, 1e-9)

			Convey("while video starts at the keyframe and catches up", func() {
				s.PublishAudioClock(0, 4.25, s.Generation())
				s.UpdateForPresent(0)
				So(s.LastFrameTime(), ShouldAlmostEqual, 4.24, 1e-9)
			})
		})
	})
}

func TestSessionClock(t *testing.T) {
	Convey("Given an open audio+video session", t, func() {
		fx := newFixture(map[string]mpegtest.File{"av.mp4": mpegtest.AV(10)})
		s := fx.s
		defer s.Close()
		So(s.Open(Item{Path: "av.mp4"}, DefaultOpenOptions()), ShouldBeTrue)
		fx.pump()

		Convey("the position holds until the audio clock is published", func() {
			s.UpdateForPresent(0.2)
			So(s.Position(0.2), ShouldEqual, 0)

			s.PublishAudioClock(0.2, 0.05, 1)
			s.UpdateForPresent(0.3)
			So(s.PendingSync(), ShouldBeFalse)
			So(s.Position(1.2), ShouldAlmostEqual, 1.05, 1e-9)
		})

		Convey("a clock from another generation is ignored", func() {
			s.PublishAudioClock(0.2, 3, 7)
			s.UpdateForPresent(0.2)
			So(s.PendingSync(), ShouldBeTrue)

			Convey("until the wall clock takes over", func() {
				s.UpdateForPresent(0.6)
				So(s.PendingSync(), ShouldBeFalse)
				So(s.Position(0.6), ShouldEqual, 0)
				So(s.Position(1.6), ShouldAlmostEqual, 1, 1e-9)
			})
		})
	})

	Convey("Given a video-only session", t, func() {
		fx := newFixture(map[string]mpegtest.File{"v.mp4": videoOnly(10)})
		s := fx.s
		defer s.Close()
		So(s.Open(Item{Path: "v.mp4"}, DefaultOpenOptions()), ShouldBeTrue)
		fx.pump()

		Convey("the first frame anchors the clock", func() {
			So(s.UpdateForPresent(0.3), ShouldBeTrue)
			So(s.PendingSync(), ShouldBeFalse)
			So(s.Position(1.3), ShouldAlmostEqual, 1, 1e-9)
		})

		Convey("pause freezes the position and play resumes from it", func() {
			s.UpdateForPresent(0)
			fx.clock.Set(1)
			s.Pause()
			So(s.State(), ShouldEqual, Paused)
			So(s.Position(5), ShouldAlmostEqual, 1, 1e-9)

			fx.clock.Set(3)
			s.TogglePause()
			So(s.State(), ShouldEqual, Playing)
			So(s.Position(3), ShouldAlmostEqual, 1, 1e-9)
			So(s.Position(4), ShouldAlmostEqual, 2, 1e-9)
		})

		Convey("the shown frame never goes back in time while playing", func() {
			last := -1.0
			for i := 0; i <= 150; i++ {
				now := float64(i) * 0.02
				fx.clock.Set(now)
				fx.pump()
				s.UpdateForPresent(now)

				So(s.LastFrameTime(), ShouldBeGreaterThanOrEqualTo, last)
				So(math.Abs(s.LastFrameTime()-s.Position(now)), ShouldBeLessThanOrEqualTo, 0.04+1e-9)
				last = s.LastFrameTime()
			}
			So(last, ShouldBeGreaterThan, 2.9)
		})
	})
}

func TestSessionAudio(t *testing.T) {
	Convey("Given a one second file", t, func() {
		fx := newFixture(map[string]mpegtest.File{"short.mp4": mpegtest.AV(1)})
		s := fx.s
		defer s.Close()
		So(s.Open(Item{Path: "short.mp4"}, DefaultOpenOptions()), ShouldBeTrue)

		Convey("the end of the audio is marked with a second of silence", func() {
			for i := 0; i < 10 && !s.AudioEnded(); i++ {
				fx.pump()
				if s.AudioEnded() {
					break
				}
				fx.pt.Buffer.Skip(fx.pt.Buffer.Available())
			}
			So(s.AudioEnded(), ShouldBeTrue)
			So(fx.pt.Buffer.Seconds(), ShouldAlmostEqual, eofSilence, 1e-9)
			So(fx.pt.Buffer.EndTime(), ShouldAlmostEqual, 2.0, 1e-9)
			So(s.EndTime(), ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("a missing visualizer target is tolerated", func() {
			s.ProcessIO(nil, nil)
			s.ProcessAudio(fx.pt, nil, nil)
			So(fx.pt.Buffer.Available(), ShouldBeGreaterThan, 0)
			So(s.AudioBufferTime(), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestSessionPresent(t *testing.T) {
	Convey("Given an open session", t, func() {
		fx := newFixture(map[string]mpegtest.File{"av.mp4": mpegtest.AV(4)})
		s := fx.s
		So(s.Open(Item{Path: "av.mp4"}, DefaultOpenOptions()), ShouldBeTrue)
		sink := &fakeSink{}

		Convey("nothing can be shown or captured before the first frame", func() {
			So(s.UpdateTexture(sink), ShouldEqual, TextureInvalid)
			_, err := s.CaptureCurrentFrame()
			So(errors.Is(err, mpeg.ErrNoFrame), ShouldBeTrue)
		})

		Convey("a frame is uploaded once", func() {
			fx.pump()
			s.UpdateForPresent(0)
			So(s.UpdateTexture(sink), ShouldEqual, TexturePresent)
			So(s.UpdateTexture(sink), ShouldEqual, TextureValid)
			So(sink.uploads, ShouldEqual, 1)
			So(sink.width, ShouldEqual, 4)
			So(sink.height, ShouldEqual, 2)

			img, err := s.CaptureCurrentFrame()
			So(err, ShouldBeNil)
			So(img.Bounds().Dx(), ShouldEqual, 4)
		})

		Convey("a failing sink reports an invalid texture", func() {
			fx.pump()
			s.UpdateForPresent(0)
			sink.fail = true
			So(s.UpdateTexture(sink), ShouldEqual, TextureInvalid)
		})

		Convey("the first frame is captured without moving playback", func() {
			fx.pump()
			opens := fx.backend.Opens.Load()
			img, err := s.CaptureFirstFrame()
			So(err, ShouldBeNil)
			So(img.Bounds().Dx(), ShouldEqual, 4)
			So(img.Bounds().Dy(), ShouldEqual, 2)
			So(fx.backend.Opens.Load(), ShouldEqual, opens+1)
			So(fx.backend.Seeks.Load(), ShouldEqual, 0)
		})

		Convey("close drops everything and stops the loops", func() {
			fx.pump()
			s.UpdateForPresent(0)
			s.Close()
			So(s.State(), ShouldEqual, Closed)
			So(s.UpdateForPresent(1), ShouldBeFalse)
			So(s.UpdateTexture(sink), ShouldEqual, TextureInvalid)
			So(s.videoFrames.IsEmpty(), ShouldBeTrue)
			So(s.audioPackets.IsEmpty(), ShouldBeTrue)
			_, err := s.CaptureFirstFrame()
			So(errors.Is(err, mpeg.ErrClosed), ShouldBeTrue)
			s.Close()
		})

		Reset(func() { s.Close() })
	})
}
