package pcm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/haivivi/dtwasr/pkg/audio/resampler"
)

// FrameReader reads fixed-length frames from a raw little-endian PCM16
// stream.
type FrameReader struct {
	r    io.Reader
	size int
	buf  []byte
	done bool
}

// NewFrameReader returns a FrameReader producing frames of size samples.
func NewFrameReader(r io.Reader, size int) *FrameReader {
	if size <= 0 {
		panic("pcm: invalid frame size")
	}
	return &FrameReader{r: r, size: size, buf: make([]byte, 2*size)}
}

// ReadFrame returns the next frame. A short final frame is zero-padded.
// It returns io.EOF once the stream is exhausted.
func (fr *FrameReader) ReadFrame() (Frame, error) {
	if fr.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(fr.r, fr.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		fr.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		fr.done = true
		if n < 2 {
			return nil, io.EOF
		}
		clear(fr.buf[n:])
	default:
		return nil, fmt.Errorf("pcm: read frame: %w", err)
	}
	return Frame(Decode(fr.buf)), nil
}

// WriteSamples writes samples to w as little-endian PCM16.
func WriteSamples(w io.Writer, samples []int16) error {
	_, err := w.Write(Encode(samples))
	return err
}

// ReadFile loads a recording as 16 kHz mono samples. Files ending in .wav
// are decoded and resampled when needed; anything else is read as raw
// 16 kHz little-endian PCM16.
func ReadFile(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("pcm: read %s: %w", path, err)
		}
		return Decode(b), nil
	}

	samples, rate, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("pcm: %s: %w", path, err)
	}
	want := L16Mono16K.SampleRate()
	if rate == want {
		return samples, nil
	}
	return resampler.Resample(samples, rate, want)
}
