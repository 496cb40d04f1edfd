// Package synth renders synthetic "words" as 16-bit PCM for demos and
// tests. A word is a sequence of harmonic tones with short fades, framed
// by low-level background noise so that no analysis window is digital
// silence.
package synth

import (
	"math"
	"math/rand/v2"
	"time"
)

// Tone is one steady pitch.
type Tone struct {
	Freq     float64       // fundamental in Hz, 0 for a pause
	Duration time.Duration // length of the tone
}

// Word is a sequence of tones spoken at one level.
type Word []Tone

// Config controls rendering.
type Config struct {
	SampleRate int           // default 16000
	Amplitude  float64       // peak of the fundamental (default 8000)
	Lead       time.Duration // background before the word (default 300ms)
	Tail       time.Duration // background after the word (default 400ms)
	Noise      float64       // background RMS (default 6)
	Seed       uint64        // noise seed
}

// DefaultConfig returns 16 kHz rendering with 300 ms lead and 400 ms tail.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		Amplitude:  8000,
		Lead:       300 * time.Millisecond,
		Tail:       400 * time.Millisecond,
		Noise:      6,
	}
}

// harmonic partials relative to the fundamental
var partials = []struct {
	ratio, amp float64
}{
	{1, 1.0},
	{2, 0.5},
	{3, 0.25},
}

const fade = 10 * time.Millisecond

func (cfg Config) samples(d time.Duration) int {
	return int(float64(cfg.SampleRate) * d.Seconds())
}

func (cfg Config) rand() *rand.Rand {
	return rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
}

// Render returns the samples of w with lead and tail background.
func Render(w Word, cfg Config) []int16 {
	rate := float64(cfg.SampleRate)
	total := cfg.samples(cfg.Lead) + cfg.samples(cfg.Tail)
	for _, t := range w {
		total += cfg.samples(t.Duration)
	}
	out := make([]float64, total)

	pos := cfg.samples(cfg.Lead)
	nf := cfg.samples(fade)
	for _, t := range w {
		n := cfg.samples(t.Duration)
		if t.Freq > 0 {
			for i := 0; i < n; i++ {
				env := 1.0
				if i < nf {
					env = 0.5 - 0.5*math.Cos(math.Pi*float64(i)/float64(nf))
				} else if n-i <= nf {
					env = 0.5 - 0.5*math.Cos(math.Pi*float64(n-i)/float64(nf))
				}
				var v float64
				for _, p := range partials {
					v += p.amp * math.Sin(2*math.Pi*t.Freq*p.ratio*float64(i)/rate)
				}
				out[pos+i] = cfg.Amplitude * env * v
			}
		}
		pos += n
	}

	r := cfg.rand()
	for i := range out {
		out[i] += r.NormFloat64() * cfg.Noise
	}
	return quantize(out)
}

// Noise returns d of white noise at the given RMS, framed by the same
// lead and tail background as Render.
func Noise(d time.Duration, rms float64, cfg Config) []int16 {
	lead := cfg.samples(cfg.Lead)
	n := cfg.samples(d)
	out := make([]float64, lead+n+cfg.samples(cfg.Tail))

	r := cfg.rand()
	for i := range out {
		level := cfg.Noise
		if i >= lead && i < lead+n {
			level = rms
		}
		out[i] = r.NormFloat64() * level
	}
	return quantize(out)
}

// Concat joins several renderings.
func Concat(parts ...[]int16) []int16 {
	var out []int16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func quantize(in []float64) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		out[i] = int16(max(math.MinInt16, min(math.MaxInt16, math.Round(v))))
	}
	return out
}
