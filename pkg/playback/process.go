package playback

import (
	"time"

	"github.com/sirupsen/logrus"

	"flow-player/pkg/mpeg"
	"flow-player/pkg/queue"
)

// ProcessIO runs on the reader goroutine. It performs a requested decoder
// seek, then reads packets while either packet queue wants more and wakes the
// decode workers.
func (s *Session) ProcessIO(videoEvent, audioEvent *Event) {
	if !s.active() {
		return
	}
	if s.seekRequested.Swap(false) {
		s.seekDecoder()
	}

	read := 0
	s.decoderMu.RLock()
	for i := 0; i < maxIterations && !s.eofQueued && s.active(); i++ {
		if !s.wantsPackets() {
			break
		}
		p := s.decoder.ReadPacket()
		if p == nil {
			s.queueEOF()
			break
		}
		p.Generation = s.readGeneration
		switch p.StreamIndex {
		case s.info.VideoIndex:
			s.videoPackets.Push(p)
		case s.info.AudioIndex:
			s.audioPackets.Push(p)
		default:
			p.Release()
			continue
		}
		read++
	}
	s.decoderMu.RUnlock()

	if read > 0 || s.eofQueued {
		videoEvent.Set()
		audioEvent.Set()
	}
}

func (s *Session) wantsPackets() bool {
	vp, ap := s.videoPackets.Size(), s.audioPackets.Size()
	if vp >= maxQueuedPackets || ap >= maxQueuedPackets {
		return false
	}
	return (s.info.HasVideo && vp < queue.Capacity) || (s.info.HasAudio && ap < queue.Capacity)
}

// queueEOF pushes the end-of-stream marker once per generation.
func (s *Session) queueEOF() {
	if s.eofQueued {
		return
	}
	if s.info.HasVideo {
		s.videoPackets.Push(mpeg.NewEOFPacket(s.info.VideoIndex, s.readGeneration))
	}
	if s.info.HasAudio {
		s.audioPackets.Push(mpeg.NewEOFPacket(s.info.AudioIndex, s.readGeneration))
	}
	s.eofQueued = true
	s.log.WithField("generation", s.readGeneration).Debug("end of stream queued")
}

// seekDecoder repositions the container for the latest generation and drops
// everything decoded for older ones.
func (s *Session) seekDecoder() {
	s.decoderMu.Lock()
	defer s.decoderMu.Unlock()

	gen := s.generation.Load()
	target := s.seekTarget()
	if !s.decoder.Seek(target, s.LastFrameTime()) {
		s.log.WithFields(logrus.Fields{"position": target, "generation": gen}).Warn("decoder seek failed")
	}
	s.decoder.FlushVideo()
	s.decoder.FlushAudio()
	s.clearQueues()
	s.readGeneration = gen
	s.eofQueued = false
}

// ProcessVideo runs on the video goroutine and decodes packets into the video
// frame queue until it is full or the packets run out.
func (s *Session) ProcessVideo(readEvent *Event) {
	if !s.info.HasVideo {
		return
	}
	total := 0
	for i := 0; i < maxIterations; i++ {
		if !s.active() || !s.videoFrames.ShouldReceive() {
			break
		}
		start := time.Now()
		s.decoderMu.RLock()
		n := s.decoder.ReceiveVideoFrames(s.videoPackets, s.videoFrames)
		s.decoderMu.RUnlock()
		s.stats.RecordVideoDecode(n, time.Since(start))

		if s.videoPackets.Size() < queue.Capacity/2 {
			readEvent.Set()
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		s.host.InvalidateView("video frame")
	}
}

// ProcessAudio runs on the audio goroutine. It decodes audio frames and
// resamples those of the current generation into the playback and
// visualizer targets until the playback buffer holds maxAudioBuffered
// seconds. vis may be nil.
func (s *Session) ProcessAudio(playback, vis *AudioTarget, readEvent *Event) {
	if !s.info.HasAudio || playback == nil {
		return
	}
	s.syncTargets(playback, vis, s.generation.Load())

	for i := 0; i < maxIterations; i++ {
		if !s.active() {
			return
		}
		if s.audioFrames.ShouldReceive() {
			start := time.Now()
			s.decoderMu.RLock()
			n := s.decoder.ReceiveAudioFrames(s.audioPackets, s.audioFrames)
			s.decoderMu.RUnlock()
			s.stats.RecordAudioDecode(n, time.Since(start))
			if s.audioPackets.Size() < queue.Capacity/2 {
				readEvent.Set()
			}
		}
		if playback.Buffer.Seconds() >= maxAudioBuffered {
			break
		}
		f, ok := s.audioFrames.Pop()
		if !ok {
			break
		}
		s.consumeAudio(f, playback, vis)
		f.Release()
	}
	if playback.Buffer.Generation() == s.generation.Load() {
		s.audioBufferTime.Store(playback.Buffer.EndTime())
	}
}

func (s *Session) consumeAudio(f *mpeg.Frame, playback, vis *AudioTarget) {
	gen := s.generation.Load()
	if f.Generation != gen {
		s.stats.RecordStaleAudio()
		return
	}
	s.syncTargets(playback, vis, gen)

	if f.EOF {
		playback.appendSilence(eofSilence, f.Seconds)
		vis.appendSilence(eofSilence, f.Seconds)
		s.audioEnded.Store(true)
		return
	}

	skip := s.seekTarget()
	if f.End() <= skip {
		s.stats.RecordSkippedAudio()
		return
	}
	for _, t := range []*AudioTarget{playback, vis} {
		if err := t.resample(f); err != nil {
			s.log.WithError(err).Debug("resample failed")
			continue
		}
		if f.Seconds < skip {
			t.trimBefore(skip)
		}
	}
	s.extendEnd(f.End())
}

// syncTargets flushes both targets on a generation change so no sample from
// before a seek is played or analysed afterwards.
func (s *Session) syncTargets(playback, vis *AudioTarget, gen uint32) {
	reset := playback.sync(gen)
	if vis.sync(gen) {
		reset = true
	}
	if reset && s.vis != nil {
		s.vis.Clear()
	}
}

// AudioEnded reports whether the last audio frame of this generation has
// been resampled.
func (s *Session) AudioEnded() bool { return s.audioEnded.Load() }

// VideoEnded reports whether the last video frame of this generation has
// been presented.
func (s *Session) VideoEnded() bool { return s.videoEnded.Load() }
