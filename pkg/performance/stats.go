package performance

import (
	"sync/atomic"
	"time"
)

// Stats collects per-session playback counters. Every method is safe for
// concurrent use: decode workers and the UI tick record into the same value.
type Stats struct {
	videoDecode *RollingAverage
	audioDecode *RollingAverage
	present     *RollingAverage

	videoFrames  atomic.Int64
	audioFrames  atomic.Int64
	presented    atomic.Int64
	staleVideo   atomic.Int64
	staleAudio   atomic.Int64
	skippedAudio atomic.Int64
	seeks        atomic.Int64
	deviceResets atomic.Int64
	started      time.Time
}

// Report is a snapshot of Stats.
type Report struct {
	VideoFrames   int64   `json:"videoFrames"`
	AudioFrames   int64   `json:"audioFrames"`
	Presented     int64   `json:"presented"`
	StaleVideo    int64   `json:"staleVideo"`
	StaleAudio    int64   `json:"staleAudio"`
	SkippedAudio  int64   `json:"skippedAudio"`
	Seeks         int64   `json:"seeks"`
	DeviceResets  int64   `json:"deviceResets"`
	AvgVideoMs    float64 `json:"avgVideoMs"`
	AvgAudioMs    float64 `json:"avgAudioMs"`
	AvgPresentMs  float64 `json:"avgPresentMs"`
	DropRate      float64 `json:"dropRate"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	Healthy       bool    `json:"healthy"`
}

// NewStats averages timings over window samples.
func NewStats(window int) *Stats {
	return &Stats{
		videoDecode: NewRollingAverage(window),
		audioDecode: NewRollingAverage(window),
		present:     NewRollingAverage(window),
		started:     time.Now(),
	}
}

// RecordVideoDecode adds frames decoded in one pass and the time it took.
func (s *Stats) RecordVideoDecode(frames int, d time.Duration) {
	if frames == 0 {
		return
	}
	s.videoFrames.Add(int64(frames))
	s.videoDecode.Add(d / time.Duration(frames))
}

// RecordAudioDecode is RecordVideoDecode for audio frames.
func (s *Stats) RecordAudioDecode(frames int, d time.Duration) {
	if frames == 0 {
		return
	}
	s.audioFrames.Add(int64(frames))
	s.audioDecode.Add(d / time.Duration(frames))
}

func (s *Stats) RecordPresent(d time.Duration) {
	s.presented.Add(1)
	s.present.Add(d)
}

func (s *Stats) RecordStaleVideo()   { s.staleVideo.Add(1) }
func (s *Stats) RecordStaleAudio()   { s.staleAudio.Add(1) }
func (s *Stats) RecordSkippedAudio() { s.skippedAudio.Add(1) }
func (s *Stats) RecordSeek()         { s.seeks.Add(1) }
func (s *Stats) RecordDeviceReset()  { s.deviceResets.Add(1) }

// Report snapshots the counters. A session is healthy while under 1% of
// decoded video frames were never shown and decoding keeps up with 30 fps.
func (s *Stats) Report() Report {
	r := Report{
		VideoFrames:   s.videoFrames.Load(),
		AudioFrames:   s.audioFrames.Load(),
		Presented:     s.presented.Load(),
		StaleVideo:    s.staleVideo.Load(),
		StaleAudio:    s.staleAudio.Load(),
		SkippedAudio:  s.skippedAudio.Load(),
		Seeks:         s.seeks.Load(),
		DeviceResets:  s.deviceResets.Load(),
		AvgVideoMs:    ms(s.videoDecode.Average()),
		AvgAudioMs:    ms(s.audioDecode.Average()),
		AvgPresentMs:  ms(s.present.Average()),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if r.VideoFrames > 0 {
		r.DropRate = float64(r.StaleVideo) / float64(r.VideoFrames) * 100
	}
	r.Healthy = r.DropRate < 1 && r.AvgVideoMs < 33
	return r
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
