// Package mfcc computes mel-frequency cepstral coefficients from 16-bit PCM.
//
// Each analysis window goes through pre-emphasis, a Hamming window, zero
// padding, a radix-2 FFT, a triangular mel filter bank, log10 compression
// and a DCT-II. Samples are used at their raw int16 scale.
//
// Default parameters:
//
//	SampleRate:      16000
//	WindowSize:      400 (25 ms)
//	Stride:          160 (10 ms)
//	FFTSize:         512
//	NumFilters:      26
//	NumCoefficients: 13
//	LowFreq:         0
//	HighFreq:        8000
//	PreEmphasis:     0.97
package mfcc

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/haivivi/dtwasr/pkg/buffer"
)

// ErrNonPositiveEnergy is returned when a mel band has no energy, which
// makes the log undefined. Digital silence (all-zero windows) triggers it.
var ErrNonPositiveEnergy = errors.New("mfcc: non-positive band energy")

// Vector is the cepstral feature of one analysis window.
type Vector []float64

// Sequence is the time-ordered features of one utterance.
type Sequence []Vector

// Config controls MFCC extraction.
type Config struct {
	SampleRate      int     // audio sample rate in Hz (default 16000)
	WindowSize      int     // analysis window in samples (default 400)
	Stride          int     // window advance in samples (default 160)
	FFTSize         int     // FFT length, a power of two >= WindowSize (default 512)
	NumFilters      int     // mel filters (default 26)
	NumCoefficients int     // cepstral coefficients kept (default 13)
	LowFreq         float64 // lowest mel frequency (default 0)
	HighFreq        float64 // highest mel frequency (default 8000)
	PreEmphasis     float64 // pre-emphasis coefficient (default 0.97)
	BufferCapacity  int     // ring buffer capacity in samples (default 65536)
}

// DefaultConfig returns the 13-coefficient, 26-filter configuration for
// 16 kHz speech.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		WindowSize:      400,
		Stride:          160,
		FFTSize:         512,
		NumFilters:      26,
		NumCoefficients: 13,
		LowFreq:         0,
		HighFreq:        8000,
		PreEmphasis:     0.97,
		BufferCapacity:  1 << 16,
	}
}

// Validate reports whether cfg describes a usable pipeline.
func (cfg Config) Validate() error {
	switch {
	case cfg.WindowSize < 2:
		return fmt.Errorf("mfcc: window size %d too small", cfg.WindowSize)
	case cfg.Stride < 1:
		return fmt.Errorf("mfcc: stride must be positive, got %d", cfg.Stride)
	case !isPowerOfTwo(cfg.FFTSize):
		return fmt.Errorf("%w: fft size %d", ErrNotPowerOfTwo, cfg.FFTSize)
	case cfg.FFTSize < cfg.WindowSize:
		return fmt.Errorf("mfcc: fft size %d shorter than window %d", cfg.FFTSize, cfg.WindowSize)
	case cfg.NumCoefficients < 1 || cfg.NumCoefficients > cfg.NumFilters:
		return fmt.Errorf("mfcc: %d coefficients from %d filters", cfg.NumCoefficients, cfg.NumFilters)
	case cfg.BufferCapacity <= cfg.WindowSize+cfg.Stride:
		return fmt.Errorf("mfcc: buffer capacity %d must exceed window+stride %d",
			cfg.BufferCapacity, cfg.WindowSize+cfg.Stride)
	}
	return nil
}

// Extractor turns a stream of PCM samples into feature vectors.
//
// Samples that do not yet fill a window plus one stride stay buffered
// between calls, so an utterance may be fed in arbitrary blocks. An
// Extractor is not safe for concurrent use.
type Extractor struct {
	cfg    Config
	ring   *buffer.RingBuffer[float64]
	fft    *FFT
	mel    *MelFilterBank
	window []float64   // Hamming window
	dct    [][]float64 // [NumCoefficients][NumFilters], scale included

	frame  []float64 // WindowSize
	padded []float64 // FFTSize
	bands  []float64 // NumFilters
}

// New creates an Extractor for cfg.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fft, err := NewFFT(cfg.FFTSize)
	if err != nil {
		return nil, err
	}
	mel, err := NewMelFilterBank(MelConfig{
		NumFilters: cfg.NumFilters,
		LowFreq:    cfg.LowFreq,
		HighFreq:   cfg.HighFreq,
		NumBins:    cfg.FFTSize,
		SampleRate: cfg.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:    cfg,
		ring:   buffer.RingN[float64](cfg.BufferCapacity),
		fft:    fft,
		mel:    mel,
		window: hammingWindow(cfg.WindowSize),
		dct:    dctTable(cfg.NumCoefficients, cfg.NumFilters),
		frame:  make([]float64, cfg.WindowSize),
		padded: make([]float64, cfg.FFTSize),
		bands:  make([]float64, cfg.NumFilters),
	}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Pending returns the number of buffered samples not yet consumed.
func (e *Extractor) Pending() int {
	return e.ring.Available()
}

// Clear drops all buffered samples.
func (e *Extractor) Clear() {
	e.ring.Clear()
}

// Feed buffers samples and yields one Vector per window while at least
// WindowSize+Stride samples are buffered. Samples are pushed into the
// ring buffer as the sequence is consumed; stopping early drops the part
// of samples not yet buffered. Iteration stops after the first error.
func (e *Extractor) Feed(samples []int16) iter.Seq2[Vector, error] {
	return func(yield func(Vector, error) bool) {
		need := e.cfg.WindowSize + e.cfg.Stride
		chunk := make([]float64, 0, min(len(samples), e.ring.Cap()))
		for {
			room := e.ring.Cap() - 1 - e.ring.Available()
			if n := min(room, len(samples)); n > 0 {
				chunk = chunk[:n]
				for i, s := range samples[:n] {
					chunk[i] = float64(s)
				}
				e.ring.Write(chunk)
				samples = samples[n:]
			}
			if e.ring.Available() < need {
				return
			}
			for e.ring.Available() >= need {
				e.ring.Mark()
				e.ring.ReadInto(e.frame)
				if err := e.ring.Reset(); err != nil {
					yield(nil, err)
					return
				}
				e.ring.Discard(e.cfg.Stride)

				v, err := e.Compute(e.frame)
				if !yield(v, err) || err != nil {
					return
				}
			}
		}
	}
}

// Extract feeds samples and collects every vector produced.
func (e *Extractor) Extract(samples []int16) (Sequence, error) {
	var seq Sequence
	for v, err := range e.Feed(samples) {
		if err != nil {
			return seq, err
		}
		seq = append(seq, v)
	}
	return seq, nil
}

// Compute returns the feature of one window of exactly WindowSize samples.
func (e *Extractor) Compute(window []float64) (Vector, error) {
	cfg := e.cfg
	if len(window) != cfg.WindowSize {
		return nil, fmt.Errorf("mfcc: window has %d samples, want %d", len(window), cfg.WindowSize)
	}

	// Pre-emphasis + Hamming window, zero padded to FFTSize.
	prev := 0.0
	for i, s := range window {
		y := s
		if i > 0 {
			y -= cfg.PreEmphasis * prev
		}
		prev = s
		e.padded[i] = y * e.window[i]
	}
	clear(e.padded[cfg.WindowSize:])

	spectrum, err := e.fft.Transform(e.padded)
	if err != nil {
		return nil, err
	}
	e.mel.processInto(e.bands, Energies(spectrum))

	for i, b := range e.bands {
		if !(b > 0) {
			return nil, fmt.Errorf("%w: band %d = %v", ErrNonPositiveEnergy, i, b)
		}
		e.bands[i] = math.Log10(b)
	}

	out := make(Vector, cfg.NumCoefficients)
	for k, row := range e.dct {
		var sum float64
		for n, c := range row {
			sum += e.bands[n] * c
		}
		out[k] = sum
	}
	return out, nil
}

// dctTable returns DCT-II coefficients cos(π/n·(i+0.5)·k)·sqrt(2/n).
func dctTable(coeffs, n int) [][]float64 {
	scale := math.Sqrt(2.0 / float64(n))
	t := make([][]float64, coeffs)
	for k := range t {
		row := make([]float64, n)
		for i := range row {
			row[i] = math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k)) * scale
		}
		t[k] = row
	}
	return t
}

// ExtractSamples runs a fresh Extractor for cfg over one utterance.
// Templates and queries both go through here so their features are
// computed identically.
func ExtractSamples(cfg Config, samples []int16) (Sequence, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return e.Extract(samples)
}
