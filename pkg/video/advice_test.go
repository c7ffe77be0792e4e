package video

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flow-player/pkg/mpeg"
)

func TestDetectFamily(t *testing.T) {
	Convey("Codec and decoder names map to families", t, func() {
		So(DetectFamily("h264"), ShouldEqual, FamilyH264)
		So(DetectFamily("h264_rkmpp"), ShouldEqual, FamilyH264)
		So(DetectFamily("HEVC"), ShouldEqual, FamilyHEVC)
		So(DetectFamily("mpeg2video"), ShouldEqual, FamilyMPEG2)
		So(DetectFamily("libdav1d"), ShouldEqual, FamilyAV1)
		So(DetectFamily("prores"), ShouldEqual, FamilyUnknown)
		So(FamilyVP9.String(), ShouldEqual, "VP9")
	})
}

func TestAdvise(t *testing.T) {
	Convey("Given a 4K HEVC stream", t, func() {
		s := mpeg.StreamInfo{Index: 0, Type: mpeg.MediaTypeVideo, CodecName: "hevc", Width: 3840, Height: 2160}

		Convey("a hardware decoder makes it optimal", func() {
			a, ok := Advise("clip.mkv", s, []string{"hevc_vaapi"})
			So(ok, ShouldBeTrue)
			So(a.Optimal, ShouldBeTrue)
			So(a.Transcode, ShouldBeEmpty)
			So(a.Reason, ShouldContainSubstring, "hevc_vaapi")
		})

		Convey("without one a scaled H.264 transcode is suggested", func() {
			a, ok := Advise("media/clip.mkv", s, nil)
			So(ok, ShouldBeTrue)
			So(a.Optimal, ShouldBeFalse)
			So(a.Transcode, ShouldContainSubstring, "scale=-2:1080")
			So(a.Transcode, ShouldContainSubstring, `"media/clip.h264.mp4"`)
		})
	})

	Convey("Audio streams and cover art get no advice", t, func() {
		_, ok := Advise("a.mp3", mpeg.StreamInfo{Type: mpeg.MediaTypeAudio, CodecName: "mp3"}, nil)
		So(ok, ShouldBeFalse)
		_, ok = Advise("a.mp3", mpeg.StreamInfo{Type: mpeg.MediaTypeVideo, CodecName: "mjpeg", AttachedPicture: true}, nil)
		So(ok, ShouldBeFalse)
	})
}
