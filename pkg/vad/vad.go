// Package vad detects utterance boundaries in 16-bit PCM frames.
//
// Each frame is classified as active when its RMS level exceeds a
// decibel threshold (default -40 dBFS). A small state machine with
// hysteresis turns the classification into utterance boundaries:
//
//	Waiting  --5 consecutive active frames-->   Speaking
//	Speaking --9 consecutive inactive frames--> Ended
//	Ended    --any frame-->                     Waiting
//
// The frame that completes the run is the one that changes the state.
// Ended lasts exactly one frame.
package vad

import (
	"log/slog"
	"math"
)

// MaxAmplitude is the 0 dBFS reference for 16-bit samples.
const MaxAmplitude = 32767

// State is the detector state after a frame.
type State int

const (
	// Waiting means no utterance is in progress.
	Waiting State = iota
	// Speaking means an utterance is in progress.
	Speaking
	// Ended marks the frame on which an utterance finished.
	Ended
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Speaking:
		return "speaking"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Counters hold the hysteresis run lengths.
type Counters struct {
	Voice   int // consecutive active frames while Waiting
	Silence int // consecutive inactive frames while Speaking
}

// Rules are the run lengths that trigger transitions.
type Rules struct {
	StartFrames int // active frames to enter Speaking (default 5)
	EndFrames   int // inactive frames to enter Ended (default 9)
}

// DefaultRules returns the 5/9 frame hysteresis.
func DefaultRules() Rules {
	return Rules{StartFrames: 5, EndFrames: 9}
}

// Step is the pure transition function. It returns the state and counters
// after observing one frame classified as active or not.
func Step(r Rules, s State, c Counters, active bool) (State, Counters) {
	switch s {
	case Waiting:
		if !active {
			return Waiting, Counters{}
		}
		c.Voice++
		if c.Voice >= r.StartFrames {
			return Speaking, Counters{}
		}
		return Waiting, c
	case Speaking:
		if active {
			c.Silence = 0
			return Speaking, c
		}
		c.Silence++
		if c.Silence >= r.EndFrames {
			return Ended, Counters{}
		}
		return Speaking, c
	default:
		return Waiting, Counters{}
	}
}

// Decibel returns the RMS level of frame in dBFS. An empty or all-zero
// frame yields -Inf.
func Decibel(frame []int16) float64 {
	if len(frame) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return 20 * math.Log10(rms/MaxAmplitude)
}

// Detector runs the state machine over successive frames.
// A Detector is not safe for concurrent use.
type Detector struct {
	rules     Rules
	threshold float64
	logger    *slog.Logger

	state    State
	counters Counters
	lastDB   float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold sets the activity threshold in dBFS (default -40).
func WithThreshold(db float64) Option {
	return func(d *Detector) {
		d.threshold = db
	}
}

// WithStartFrames sets how many consecutive active frames start an
// utterance (default 5).
func WithStartFrames(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.rules.StartFrames = n
		}
	}
}

// WithEndFrames sets how many consecutive inactive frames end an
// utterance (default 9).
func WithEndFrames(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.rules.EndFrames = n
		}
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Detector in the Waiting state.
func New(opts ...Option) *Detector {
	d := &Detector{
		rules:     DefaultRules(),
		threshold: -40,
		logger:    slog.Default(),
		lastDB:    math.Inf(-1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Active reports whether a frame at db dBFS counts as voice.
func (d *Detector) Active(db float64) bool {
	return db > d.threshold
}

// Detect classifies frame and advances the state machine.
func (d *Detector) Detect(frame []int16) State {
	d.lastDB = Decibel(frame)
	prev := d.state
	d.state, d.counters = Step(d.rules, d.state, d.counters, d.Active(d.lastDB))
	if d.state != prev {
		d.logger.Debug("vad transition", "from", prev, "to", d.state, "db", d.lastDB)
	}
	return d.state
}

// State returns the state after the last frame.
func (d *Detector) State() State {
	return d.state
}

// Counters returns the current hysteresis counters.
func (d *Detector) Counters() Counters {
	return d.counters
}

// Decibel returns the level of the last frame passed to Detect.
func (d *Detector) Decibel() float64 {
	return d.lastDB
}

// Reset returns the detector to Waiting with cleared counters.
func (d *Detector) Reset() {
	d.state = Waiting
	d.counters = Counters{}
}
