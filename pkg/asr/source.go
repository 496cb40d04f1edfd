package asr

import (
	"context"
	"io"

	"github.com/haivivi/dtwasr/pkg/audio/pcm"
)

// Source yields successive fixed-length frames. ReadFrame returns io.EOF
// at the end of a finite stream; any other error ends the session.
// ReadFrame must return promptly once ctx is done.
type Source interface {
	ReadFrame(ctx context.Context) (pcm.Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (pcm.Frame, error)

// ReadFrame implements Source.
func (f SourceFunc) ReadFrame(ctx context.Context) (pcm.Frame, error) {
	return f(ctx)
}

// ReaderSource reads frames from a raw little-endian PCM16 stream.
type ReaderSource struct {
	fr *pcm.FrameReader
}

// NewReaderSource returns a Source reading frames of size samples from r.
func NewReaderSource(r io.Reader, size int) *ReaderSource {
	return &ReaderSource{fr: pcm.NewFrameReader(r, size)}
}

// ReadFrame implements Source. ctx is only checked before reading; a
// read already blocked in the underlying reader is not interrupted.
func (s *ReaderSource) ReadFrame(ctx context.Context) (pcm.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fr.ReadFrame()
}

// SamplesSource serves an in-memory recording frame by frame.
type SamplesSource struct {
	frames []pcm.Frame
}

// NewSamplesSource splits samples into frames of size samples, zero
// padding the last.
func NewSamplesSource(samples []int16, size int) *SamplesSource {
	return &SamplesSource{frames: pcm.Split(samples, size)}
}

// ReadFrame implements Source.
func (s *SamplesSource) ReadFrame(ctx context.Context) (pcm.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

var (
	_ Source = SourceFunc(nil)
	_ Source = (*ReaderSource)(nil)
	_ Source = (*SamplesSource)(nil)
)
