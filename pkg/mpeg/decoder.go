package mpeg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"flow-player/pkg/queue"
)

// maxSeekFrameReads bounds the packets read while looking for a preview frame.
const maxSeekFrameReads = 4096

type stream struct {
	info       StreamInfo
	codec      Codec
	pts        PTSCorrector
	generation uint32
	draining   bool
	ended      bool
	lastEnd    float64
}

// Decoder owns the demux and decode state of exactly one file. Video and
// audio decoding may run concurrently with each other and with ReadPacket;
// Open, InitStreams, Seek, the flushes and Close need exclusive access,
// which the owning session provides.
type Decoder struct {
	backend   Backend
	log       *logrus.Entry
	container Container
	path      string
	info      MediaInfo
	video     *stream
	audio     *stream
	eof       atomic.Bool
}

// NewDecoder creates a decoder that opens files through backend.
func NewDecoder(backend Backend, log *logrus.Entry) *Decoder {
	if log == nil {
		log = logrus.WithField("component", "decoder")
	}
	return &Decoder{backend: backend, log: log}
}

// Open opens the container at path. On failure the decoder is unchanged.
func (d *Decoder) Open(path string) bool {
	c, err := d.backend.Open(path)
	if err != nil {
		d.log.WithError(err).WithField("path", path).Warn("open failed")
		return false
	}
	if d.container != nil {
		d.Close()
	}
	d.container = c
	d.path = path
	d.eof.Store(false)
	return true
}

// InitStreams selects the video and audio streams (-1 picks the best one,
// otherwise the n-th stream of that type), opens their codecs and builds the
// media info.
func (d *Decoder) InitStreams(videoTrack, audioTrack int, allowHW, videoOnly bool) bool {
	if d.container == nil {
		return false
	}

	streams := d.container.Streams()
	cinfo := d.container.Info()

	videoInfo, hasVideo := selectStream(streams, MediaTypeVideo, videoTrack)
	audioInfo, hasAudio := selectStream(streams, MediaTypeAudio, audioTrack)
	if videoOnly {
		hasAudio = false
	}
	if !hasVideo && !hasAudio {
		d.log.WithField("path", d.path).Warn("no playable streams")
		return false
	}

	var video, audio *stream
	if hasVideo {
		codec, err := d.container.OpenCodec(videoInfo, allowHW)
		if err != nil {
			d.log.WithError(err).WithField("stream", videoInfo.Index).Warn("video codec failed to open")
			return false
		}
		video = &stream{info: videoInfo, codec: codec, pts: NewPTSCorrector()}
	}
	if hasAudio {
		codec, err := d.container.OpenCodec(audioInfo, false)
		if err != nil {
			// Playing the picture without sound beats refusing the file.
			d.log.WithError(err).WithField("stream", audioInfo.Index).Warn("audio codec failed to open, continuing without audio")
		} else {
			audio = &stream{info: audioInfo, codec: codec, pts: NewPTSCorrector()}
		}
	}
	if video == nil && audio == nil {
		return false
	}

	d.closeStreams()
	d.video = video
	d.audio = audio
	d.info = buildMediaInfo(d.path, cinfo, streams, video, audio)

	d.log.WithFields(logrus.Fields{
		"path":     d.path,
		"video":    d.info.VideoIndex,
		"audio":    d.info.AudioIndex,
		"duration": d.info.EndTime,
		"size":     fmt.Sprintf("%dx%d", d.info.RenderWidth, d.info.RenderHeight),
	}).Info("streams initialised")
	return true
}

func selectStream(streams []StreamInfo, t MediaType, track int) (StreamInfo, bool) {
	var candidates []StreamInfo
	for _, s := range streams {
		if s.Type == t && !s.AttachedPicture {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return StreamInfo{}, false
	}
	if track >= 0 {
		if track < len(candidates) {
			return candidates[track], true
		}
		return StreamInfo{}, false
	}

	best := candidates[0]
	for _, s := range candidates[1:] {
		if betterStream(s, best) {
			best = s
		}
	}
	return best, true
}

func betterStream(a, b StreamInfo) bool {
	if a.Default != b.Default {
		return a.Default
	}
	if a.Type == MediaTypeVideo {
		return a.Width*a.Height > b.Width*b.Height
	}
	return a.Channels > b.Channels
}

func buildMediaInfo(path string, c ContainerInfo, streams []StreamInfo, video, audio *stream) MediaInfo {
	info := MediaInfo{
		Path:       path,
		Format:     c.FormatName,
		Streams:    streams,
		BitRate:    c.BitRate,
		VideoIndex: -1,
		AudioIndex: -1,
		Metadata:   c.Metadata,
	}

	start := c.StartTime
	if math.IsNaN(start) {
		start = math.Inf(1)
		for _, s := range []*stream{video, audio} {
			if s != nil {
				start = math.Min(start, s.info.StartTime)
			}
		}
	}
	if math.IsInf(start, 1) || math.IsNaN(start) {
		start = 0
	}
	info.StartTime = start

	if !math.IsNaN(c.Duration) && c.Duration > 0 {
		info.EndTime = c.Duration
	} else {
		end := 0.0
		for _, s := range []*stream{video, audio} {
			if s != nil {
				end = math.Max(end, s.info.StartTime+s.info.Duration)
			}
		}
		info.EndTime = math.Max(0, end-start)
	}

	if video != nil {
		info.HasVideo = true
		info.VideoIndex = video.info.Index
		info.Width = video.info.Width
		info.Height = video.info.Height
		info.Orientation = normalizeRotation(video.info.Rotation)
		info.RenderWidth, info.RenderHeight = info.Width, info.Height
		if info.Orientation == 90 || info.Orientation == 270 {
			info.RenderWidth, info.RenderHeight = info.Height, info.Width
		}
	}
	if audio != nil {
		info.HasAudio = true
		info.AudioIndex = audio.info.Index
	}
	return info
}

// Info returns the media info built by InitStreams.
func (d *Decoder) Info() MediaInfo {
	return d.info
}

// EOF reports whether ReadPacket hit the end of the source.
func (d *Decoder) EOF() bool {
	return d.eof.Load()
}

func (d *Decoder) streamFor(index int) *stream {
	if d.video != nil && d.video.info.Index == index {
		return d.video
	}
	if d.audio != nil && d.audio.info.Index == index {
		return d.audio
	}
	return nil
}

// ReadPacket returns the next packet of a selected stream, or nil at the end
// of the source.
func (d *Decoder) ReadPacket() *Packet {
	if d.container == nil {
		return nil
	}
	for {
		p, err := d.container.ReadPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.log.WithError(err).Warn("read failed, treating as end of stream")
			}
			d.eof.Store(true)
			return nil
		}
		s := d.streamFor(p.StreamIndex)
		if s == nil {
			p.Release()
			continue
		}
		ts := p.PTS
		if ts == NoPTS {
			ts = p.DTS
		}
		if ts != NoPTS {
			p.Seconds = s.info.TimeBase.Seconds(ts) - d.info.StartTime
		}
		return p
	}
}

// VideoStreamIndex returns the selected video stream, or -1.
func (d *Decoder) VideoStreamIndex() int {
	if d.video == nil {
		return -1
	}
	return d.video.info.Index
}

// AudioStreamIndex returns the selected audio stream, or -1.
func (d *Decoder) AudioStreamIndex() int {
	if d.audio == nil {
		return -1
	}
	return d.audio.info.Index
}

// ReceiveVideoFrames decodes queued video packets until the frame queue
// signals back-pressure or the packets run out.
func (d *Decoder) ReceiveVideoFrames(pq *queue.Queue[*Packet], fq *queue.Queue[*Frame]) int {
	return d.receiveFrames(d.video, pq, fq)
}

// ReceiveAudioFrames is ReceiveVideoFrames for the audio stream.
func (d *Decoder) ReceiveAudioFrames(pq *queue.Queue[*Packet], fq *queue.Queue[*Frame]) int {
	return d.receiveFrames(d.audio, pq, fq)
}

func (d *Decoder) receiveFrames(s *stream, pq *queue.Queue[*Packet], fq *queue.Queue[*Frame]) int {
	if s == nil {
		return 0
	}

	n := 0
	for fq.ShouldReceive() {
		f, err := s.codec.ReceiveFrame()
		switch {
		case err == nil:
			d.stamp(s, f)
			fq.Push(f)
			n++
			continue
		case errors.Is(err, io.EOF):
			if s.draining && !s.ended {
				fq.Push(NewEOFFrame(s.info.Type, s.lastEnd, s.generation))
				s.ended = true
			}
			return n
		case !errors.Is(err, ErrAgain):
			d.log.WithError(err).WithField("stream", s.info.Index).Debug("decode error")
		}

		if s.draining {
			return n
		}
		p, ok := pq.Pop()
		if !ok {
			return n
		}
		s.generation = p.Generation
		if p.EOF {
			s.draining = true
			p.Release()
			if err := s.codec.SendPacket(nil); err != nil {
				d.log.WithError(err).Debug("drain failed")
			}
			continue
		}
		if err := s.codec.SendPacket(p); err != nil {
			d.log.WithError(err).WithField("stream", s.info.Index).Debug("send packet failed")
		}
		p.Release()
	}
	return n
}

// stamp corrects the timestamps of a decoded frame and tags it.
func (d *Decoder) stamp(s *stream, f *Frame) {
	f.PTS = s.pts.Guess(f.PTS, f.DTS)
	f.Seconds = s.info.TimeBase.Seconds(f.PTS) - d.info.StartTime
	f.Generation = s.generation
	if f.Duration <= 0 {
		switch {
		case f.Type == MediaTypeAudio && f.SampleRate > 0:
			f.Duration = float64(f.NbSamples) / float64(f.SampleRate)
		case f.Type == MediaTypeVideo && s.info.FrameRate > 0:
			f.Duration = 1 / s.info.FrameRate
		}
	}
	s.lastEnd = math.Max(s.lastEnd, f.End())
}

// Seek repositions the container near wanted (seconds from the start).
// Flushing stale queue content is the caller's job.
func (d *Decoder) Seek(wanted, current float64) bool {
	if d.container == nil {
		return false
	}
	if err := d.container.Seek(wanted+d.info.StartTime, wanted < current); err != nil {
		d.log.WithError(err).WithField("position", wanted).Warn("seek failed")
		return false
	}
	d.eof.Store(false)
	return true
}

// FlushVideo drops partially decoded video state.
func (d *Decoder) FlushVideo() {
	d.flush(d.video)
}

// FlushAudio drops partially decoded audio state.
func (d *Decoder) FlushAudio() {
	d.flush(d.audio)
}

func (d *Decoder) flush(s *stream) {
	if s == nil {
		return
	}
	if err := s.codec.Flush(); err != nil {
		d.log.WithError(err).WithField("stream", s.info.Index).Warn("flush failed")
	}
	s.pts.Reset()
	s.draining = false
	s.ended = false
	s.lastEnd = 0
}

// ExtractSeekFrame decodes the first video frame at or after num/den of the
// duration. It repositions the decoder, so it is only meant for decoders
// opened for previews, never for one that is feeding a playback session.
func (d *Decoder) ExtractSeekFrame(num, den int64) (*Frame, error) {
	if d.container == nil {
		return nil, ErrClosed
	}
	if d.video == nil {
		return nil, ErrNoVideo
	}

	target := 0.0
	if den > 0 && num > 0 {
		target = d.info.Duration() * float64(num) / float64(den)
	}
	if target > 0 && !d.Seek(target, math.Inf(1)) {
		target = 0
	}
	d.FlushVideo()

	pq := queue.New[*Packet]()
	fq := queue.New[*Frame]()
	defer pq.Clear()
	defer fq.Clear()

	var last *Frame
	eofQueued := false
	for reads := 0; reads < maxSeekFrameReads; reads++ {
		if !eofQueued {
			p := d.ReadPacket()
			switch {
			case p == nil:
				pq.Push(NewEOFPacket(d.video.info.Index, 0))
				eofQueued = true
			case p.StreamIndex == d.video.info.Index:
				pq.Push(p)
			default:
				p.Release()
				continue
			}
		}

		d.ReceiveVideoFrames(pq, fq)
		for {
			f, ok := fq.Pop()
			if !ok {
				break
			}
			if f.EOF {
				f.Release()
				if last != nil {
					return last, nil
				}
				return nil, ErrNoFrame
			}
			if f.End() >= target {
				if last != nil {
					last.Release()
				}
				return f, nil
			}
			if last != nil {
				last.Release()
			}
			last = f
		}
		if eofQueued && pq.IsEmpty() && fq.IsEmpty() && d.video.ended {
			break
		}
	}
	if last != nil {
		return last, nil
	}
	return nil, ErrNoFrame
}

func (d *Decoder) closeStreams() {
	for _, s := range []*stream{d.video, d.audio} {
		if s != nil && s.codec != nil {
			s.codec.Close()
		}
	}
	d.video = nil
	d.audio = nil
}

// Close releases codecs and the container. It is safe to call repeatedly.
func (d *Decoder) Close() {
	d.closeStreams()
	if d.container != nil {
		if err := d.container.Close(); err != nil {
			d.log.WithError(err).Debug("container close failed")
		}
		d.container = nil
	}
	d.info = MediaInfo{}
	d.eof.Store(false)
}
