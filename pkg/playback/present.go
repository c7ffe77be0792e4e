package playback

import (
	"fmt"
	"image"
	"math"
	"time"

	"flow-player/pkg/mpeg"
)

// UpdateForPresent picks the video frame to show at now. It is called once
// per UI tick and reports whether the shown frame changed.
func (s *Session) UpdateForPresent(now float64) bool {
	if !s.active() {
		return false
	}
	start := time.Now()
	gen := s.generation.Load()

	s.clockMu.Lock()
	s.resolveSync(now)
	s.clockMu.Unlock()

	s.presentMu.Lock()
	defer s.presentMu.Unlock()

	changed := false
	if s.current == nil || s.current.Generation != gen {
		if f := s.popFresh(gen); f != nil {
			s.setCurrent(f)
			s.anchorToVideo(now, f)
			changed = true
		}
	}

	if s.current != nil && s.current.Generation == gen && s.canAdvance() {
		pos := s.Position(now)
		for {
			f, ok := s.videoFrames.PopIf(func(next *mpeg.Frame) bool {
				return betterFrame(next, s.current, pos, gen)
			})
			if !ok {
				break
			}
			if f.Generation != gen || f.EOF {
				s.drop(f, gen)
				continue
			}
			s.setCurrent(f)
			changed = true
		}
	}

	if changed {
		s.stats.RecordPresent(time.Since(start))
	}
	return changed
}

// popFresh returns the first queued frame of generation gen, dropping older
// ones on the way.
func (s *Session) popFresh(gen uint32) *mpeg.Frame {
	for {
		f, ok := s.videoFrames.Pop()
		if !ok {
			return nil
		}
		if f.Generation == gen && !f.EOF {
			return f
		}
		s.drop(f, gen)
	}
}

func (s *Session) drop(f *mpeg.Frame, gen uint32) {
	switch {
	case f.Generation != gen:
		s.stats.RecordStaleVideo()
	case f.EOF:
		s.videoEnded.Store(true)
	}
	f.Release()
}

// betterFrame decides whether next should replace cur at position pos:
// only when it is strictly closer to pos, or shows the same time. Stale and
// end markers are always taken off the queue.
func betterFrame(next, cur *mpeg.Frame, pos float64, gen uint32) bool {
	if next.Generation != gen || next.EOF {
		return true
	}
	if math.Abs(next.Seconds-cur.Seconds) <= timeEpsilon {
		return true
	}
	return math.Abs(next.Seconds-pos) < math.Abs(cur.Seconds-pos)
}

// canAdvance reports whether frames may move past the current one. A paused
// session still settles on the frame closest to its frozen position.
func (s *Session) canAdvance() bool {
	if s.scrubbing.Load() {
		return false
	}
	switch s.State() {
	case Paused:
		return true
	case Playing:
		return !s.PendingSync()
	default:
		return false
	}
}

// anchorToVideo starts the clock from the first video frame after an open or
// seek when there is no audio clock to wait for.
func (s *Session) anchorToVideo(now float64, f *mpeg.Frame) {
	if s.info.HasAudio || s.scrubbing.Load() {
		return
	}
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	if !s.pendingSync {
		return
	}
	s.anchor = f.Seconds
	s.frozen = f.Seconds
	s.timeOffset = now - f.Seconds
	s.pendingSync = false
}

func (s *Session) setCurrent(f *mpeg.Frame) {
	if s.current != nil {
		s.current.Release()
	}
	s.current = f
	s.lastFrameTime.Store(f.Seconds)
}

// UpdateTexture uploads the current frame to sink when it changed since the
// last upload.
func (s *Session) UpdateTexture(sink TextureSink) TextureResult {
	s.presentMu.Lock()
	defer s.presentMu.Unlock()

	f := s.current
	if f == nil || len(f.Pixels) == 0 {
		return TextureInvalid
	}
	if f == s.uploaded {
		return TextureValid
	}
	if err := sink.UpdateTexture(f.Width, f.Height, f.Pixels); err != nil {
		s.log.WithError(err).Warn("texture update failed")
		return TextureInvalid
	}
	s.uploaded = f
	return TexturePresent
}

// CaptureCurrentFrame renders the frame on screen, rotated upright.
func (s *Session) CaptureCurrentFrame() (image.Image, error) {
	s.presentMu.Lock()
	f := s.current
	if f != nil {
		f.Retain()
	}
	s.presentMu.Unlock()
	if f == nil {
		return nil, fmt.Errorf("capture current frame: %w", mpeg.ErrNoFrame)
	}
	defer f.Release()

	s.decoderMu.RLock()
	defer s.decoderMu.RUnlock()
	return s.decoder.RenderFrame(f)
}

// CaptureFirstFrame renders the first frame of the file. It decodes through a
// separate preview decoder so the playback decoder keeps its position.
func (s *Session) CaptureFirstFrame() (image.Image, error) {
	s.decoderMu.RLock()
	defer s.decoderMu.RUnlock()

	if !s.active() {
		return nil, fmt.Errorf("capture first frame: %w", mpeg.ErrClosed)
	}
	if !s.info.HasVideo {
		return nil, fmt.Errorf("capture first frame: %w", mpeg.ErrNoVideo)
	}

	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	if s.preview == nil {
		d := mpeg.NewDecoder(s.backend, s.log.WithField("component", "preview"))
		if !d.Open(s.item.Path) || !d.InitStreams(s.opts.VideoTrack, -1, false, true) {
			d.Close()
			return nil, fmt.Errorf("capture first frame: %w", mpeg.ErrNoFrame)
		}
		s.preview = d
	}

	f, err := s.preview.ExtractSeekFrame(0, 1)
	if err != nil {
		return nil, fmt.Errorf("capture first frame: %w", err)
	}
	defer f.Release()
	return s.preview.RenderFrame(f)
}

// RenderVisualizer advances the visualizer to the playback position and
// reports whether the bars changed.
func (s *Session) RenderVisualizer(now float64) bool {
	if s.vis == nil {
		return false
	}
	return s.vis.Step(s.Position(now))
}
