// Package segment cuts a stream of PCM frames into utterances.
//
// Every frame drives a voice activity detector. While waiting, frames are
// kept in a short lookback so the onset that precedes the detector's
// decision is not lost. When the detector starts speaking, the lookback
// opens a new segment; the segment grows until the detector reports the
// end of the utterance.
package segment

import (
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/vad"
)

// Segment is one detected utterance.
type Segment struct {
	Index  int         // zero-based count of segments emitted by the Segmenter
	Start  int         // index of the first frame, counted from the first Push
	Frames []pcm.Frame // lookback frames followed by the speech frames
	Forced bool        // cut by the length cap rather than by the detector
}

// Samples returns the segment audio as one slice.
func (s *Segment) Samples() []int16 {
	return pcm.Join(s.Frames)
}

// Len returns the number of frames.
func (s *Segment) Len() int {
	return len(s.Frames)
}

// Config controls segmentation.
type Config struct {
	Lookback  int // pre-speech frames kept while waiting (default 10)
	MaxFrames int // force a cut after this many frames, 0 for no limit
}

// DefaultConfig returns a 10-frame lookback with no length cap.
func DefaultConfig() Config {
	return Config{Lookback: 10}
}

// Segmenter groups frames into Segments. It is not safe for concurrent use.
type Segmenter struct {
	cfg Config
	det *vad.Detector

	lookback []pcm.Frame
	open     *Segment
	frames   int // frames pushed so far
	emitted  int
}

// New creates a Segmenter driven by det.
func New(cfg Config, det *vad.Detector) *Segmenter {
	if cfg.Lookback < 0 {
		cfg.Lookback = 0
	}
	return &Segmenter{
		cfg:      cfg,
		det:      det,
		lookback: make([]pcm.Frame, 0, cfg.Lookback),
	}
}

// Detector returns the underlying voice activity detector.
func (s *Segmenter) Detector() *vad.Detector {
	return s.det
}

// Push feeds one frame. It returns a completed segment, or nil.
// The frame is retained; callers must not reuse its backing array.
func (s *Segmenter) Push(f pcm.Frame) *Segment {
	idx := s.frames
	s.frames++

	switch s.det.Detect(f) {
	case vad.Waiting:
		s.remember(f)
		return nil
	case vad.Speaking:
		if s.open == nil {
			s.open = &Segment{
				Start:  idx - len(s.lookback),
				Frames: append(make([]pcm.Frame, 0, len(s.lookback)+1), s.lookback...),
			}
			s.lookback = s.lookback[:0]
		}
		s.open.Frames = append(s.open.Frames, f)
		if s.cfg.MaxFrames > 0 && len(s.open.Frames) >= s.cfg.MaxFrames {
			s.det.Reset()
			seg := s.close()
			seg.Forced = true
			return seg
		}
		return nil
	case vad.Ended:
		return s.close()
	}
	return nil
}

// Flush returns the open segment, if any, and clears all state except the
// emitted count. Call it at the end of a finite stream.
func (s *Segmenter) Flush() *Segment {
	s.lookback = s.lookback[:0]
	s.det.Reset()
	return s.close()
}

// Active reports whether an utterance is in progress.
func (s *Segmenter) Active() bool {
	return s.open != nil
}

func (s *Segmenter) remember(f pcm.Frame) {
	if s.cfg.Lookback == 0 {
		return
	}
	if len(s.lookback) == s.cfg.Lookback {
		copy(s.lookback, s.lookback[1:])
		s.lookback = s.lookback[:len(s.lookback)-1]
	}
	s.lookback = append(s.lookback, f)
}

func (s *Segmenter) close() *Segment {
	seg := s.open
	s.open = nil
	if seg == nil {
		return nil
	}
	seg.Index = s.emitted
	s.emitted++
	return seg
}
