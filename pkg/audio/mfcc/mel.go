package mfcc

import (
	"fmt"
	"math"
)

// MelConfig describes a triangular mel filter bank.
type MelConfig struct {
	NumFilters int     // number of triangular filters (default 26)
	LowFreq    float64 // lower band edge in Hz (default 0)
	HighFreq   float64 // upper band edge in Hz (default 8000)
	NumBins    int     // spectral bins consumed per frame (default 512)
	SampleRate int     // sample rate in Hz (default 16000)
}

// DefaultMelConfig returns the 26-filter, 0-8000 Hz bank over 512 bins at 16 kHz.
func DefaultMelConfig() MelConfig {
	return MelConfig{
		NumFilters: 26,
		LowFreq:    0,
		HighFreq:   8000,
		NumBins:    512,
		SampleRate: 16000,
	}
}

// MelFilterBank applies overlapping triangular filters spaced evenly on
// the mel scale to an energy spectrum.
type MelFilterBank struct {
	cfg     MelConfig
	anchors []float64   // NumFilters+2 band edges in Hz
	weights [][]float64 // [NumFilters][NumBins]
}

// NewMelFilterBank builds the filter weights for cfg.
func NewMelFilterBank(cfg MelConfig) (*MelFilterBank, error) {
	if cfg.NumFilters < 1 || cfg.NumBins < 1 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("mfcc: invalid mel config %+v", cfg)
	}
	if cfg.HighFreq <= cfg.LowFreq || cfg.LowFreq < 0 {
		return nil, fmt.Errorf("mfcc: invalid mel band %v-%v Hz", cfg.LowFreq, cfg.HighFreq)
	}
	b := &MelFilterBank{
		cfg:     cfg,
		anchors: melSpace(cfg.LowFreq, cfg.HighFreq, cfg.NumFilters+2),
	}

	// Bin i sits at i*rate/(2*bins) Hz.
	freqs := make([]float64, cfg.NumBins)
	for i := range freqs {
		freqs[i] = float64(i) * float64(cfg.SampleRate) / float64(2*cfg.NumBins)
	}

	b.weights = make([][]float64, cfg.NumFilters)
	for m := 1; m <= cfg.NumFilters; m++ {
		lo, mid, hi := b.anchors[m-1], b.anchors[m], b.anchors[m+1]
		w := make([]float64, cfg.NumBins)
		for i, f := range freqs {
			rise := (f - lo) / (mid - lo)
			fall := (hi - f) / (hi - mid)
			w[i] = max(0, min(rise, fall))
		}
		b.weights[m-1] = w
	}
	return b, nil
}

// Config returns the bank configuration.
func (b *MelFilterBank) Config() MelConfig {
	return b.cfg
}

// Anchors returns the NumFilters+2 filter edge frequencies in Hz.
func (b *MelFilterBank) Anchors() []float64 {
	return append([]float64(nil), b.anchors...)
}

// Process returns one energy per filter: the dot product of the filter
// weights with the energy spectrum. Bins beyond NumBins are ignored.
func (b *MelFilterBank) Process(energies []float64) []float64 {
	out := make([]float64, len(b.weights))
	b.processInto(out, energies)
	return out
}

func (b *MelFilterBank) processInto(dst, energies []float64) {
	n := min(len(energies), b.cfg.NumBins)
	for m, w := range b.weights {
		var sum float64
		for i := 0; i < n; i++ {
			sum += w[i] * energies[i]
		}
		dst[m] = sum
	}
}

// HzToMel converts a frequency in Hz to the mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts a mel value back to Hz.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melSpace returns n frequencies evenly spaced in mel between lo and hi Hz.
func melSpace(lo, hi float64, n int) []float64 {
	loMel, hiMel := HzToMel(lo), HzToMel(hi)
	step := (hiMel - loMel) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = MelToHz(loMel + float64(i)*step)
	}
	return out
}

// hammingWindow generates a Hamming window of the given length.
func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}
