// Package matcher recognizes isolated words by dynamic time warping
// against a library of labeled MFCC templates.
//
// Recognition computes the DTW distance from the query to every template,
// averages the distances per label, ranks labels by that mean (lower is
// closer) and rejects the verdict when the label scores are too close
// together to discriminate: population standard deviation below 50 or
// best-to-worst range below 100.
//
// A library with a single label always rejects, because the spread of one
// score is zero.
package matcher

import (
	"cmp"
	"errors"
	"log/slog"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
)

// ErrEmptyQuery is returned when recognizing a query without features.
var ErrEmptyQuery = errors.New("matcher: empty query")

// NoMatch is the display text of a rejected result.
const NoMatch = "no match"

// Thresholds are the minimum spread of label scores needed to accept.
type Thresholds struct {
	MinStdDev float64 // default 50
	MinRange  float64 // default 100
}

// DefaultThresholds returns σ >= 50 and range >= 100.
func DefaultThresholds() Thresholds {
	return Thresholds{MinStdDev: 50, MinRange: 100}
}

// ScoreEntry collects the template distances of one label.
type ScoreEntry struct {
	Label     string    `json:"label" yaml:"label"`
	Distances []float64 `json:"distances" yaml:"distances"`
	Score     float64   `json:"score" yaml:"score"` // mean of Distances
}

// Stats describe the spread of the per-label scores.
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"` // population standard deviation
	Range  float64 `json:"range" yaml:"range"`   // highest minus lowest score
}

// Summarize computes Stats over scores sorted ascending.
func Summarize(sorted []float64) Stats {
	if len(sorted) == 0 {
		return Stats{}
	}
	var sum float64
	for _, s := range sorted {
		sum += s
	}
	mean := sum / float64(len(sorted))
	var sq float64
	for _, s := range sorted {
		d := s - mean
		sq += d * d
	}
	return Stats{
		Mean:   mean,
		StdDev: math.Sqrt(sq / float64(len(sorted))),
		Range:  sorted[len(sorted)-1] - sorted[0],
	}
}

// Reject reports whether scores, sorted ascending, are too close together.
func (th Thresholds) Reject(sorted []float64) bool {
	st := Summarize(sorted)
	return st.StdDev < th.MinStdDev || st.Range < th.MinRange
}

// Result is the outcome of one recognition.
type Result struct {
	Recognized bool         `json:"recognized" yaml:"recognized"`
	Label      string       `json:"label,omitempty" yaml:"label,omitempty"` // set when Recognized
	Scores     []ScoreEntry `json:"scores,omitempty" yaml:"scores,omitempty"`
	Stats      Stats        `json:"stats" yaml:"stats"`
}

func (r Result) String() string {
	if !r.Recognized {
		return NoMatch
	}
	return r.Label
}

// Best returns the lowest scoring entry, if any, whether or not the
// result was rejected.
func (r Result) Best() (ScoreEntry, bool) {
	if len(r.Scores) == 0 {
		return ScoreEntry{}, false
	}
	return r.Scores[0], true
}

// Matcher recognizes queries against a Library.
type Matcher struct {
	lib        *Library
	thresholds Thresholds
	distance   PointDistance
	workers    int
	logger     *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThresholds sets the rejection thresholds.
func WithThresholds(th Thresholds) Option {
	return func(m *Matcher) {
		m.thresholds = th
	}
}

// WithPointDistance replaces the Euclidean frame distance.
func WithPointDistance(d PointDistance) Option {
	return func(m *Matcher) {
		if d != nil {
			m.distance = d
		}
	}
}

// WithWorkers bounds the number of templates scored concurrently
// (default GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithLogger sets the logger for score details.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Matcher over lib.
func New(lib *Library, opts ...Option) *Matcher {
	m := &Matcher{
		lib:        lib,
		thresholds: DefaultThresholds(),
		distance:   Euclidean,
		workers:    runtime.GOMAXPROCS(0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Library returns the template library.
func (m *Matcher) Library() *Library {
	return m.lib
}

// Recognize matches query against every template.
//
// An empty library yields a rejected result. An empty query is an error.
func (m *Matcher) Recognize(query mfcc.Sequence) (Result, error) {
	if len(query) == 0 {
		return Result{}, ErrEmptyQuery
	}
	if m.lib == nil || m.lib.Len() == 0 {
		return Result{}, nil
	}

	templates := m.lib.Templates()
	dists := make([]float64, len(templates))
	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, t := range templates {
		g.Go(func() error {
			dists[i] = DistanceFunc(query, t.Features, m.distance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	scores := aggregate(templates, dists)
	sorted := make([]float64, len(scores))
	for i, s := range scores {
		sorted[i] = s.Score
	}

	res := Result{Scores: scores, Stats: Summarize(sorted)}
	if !m.thresholds.Reject(sorted) {
		res.Recognized = true
		res.Label = scores[0].Label
	}
	m.logger.Debug("recognized",
		"result", res.String(),
		"best", scores[0].Label,
		"score", scores[0].Score,
		"stddev", res.Stats.StdDev,
		"range", res.Stats.Range,
	)
	return res, nil
}

// aggregate groups distances by label and sorts labels by mean distance.
// Ties keep first-seen label order.
func aggregate(templates []Template, dists []float64) []ScoreEntry {
	index := make(map[string]int)
	var scores []ScoreEntry
	for i, t := range templates {
		k, ok := index[t.Label]
		if !ok {
			k = len(scores)
			index[t.Label] = k
			scores = append(scores, ScoreEntry{Label: t.Label})
		}
		scores[k].Distances = append(scores[k].Distances, dists[i])
	}
	for i := range scores {
		var sum float64
		for _, d := range scores[i].Distances {
			sum += d
		}
		scores[i].Score = sum / float64(len(scores[i].Distances))
	}
	slices.SortStableFunc(scores, func(a, b ScoreEntry) int {
		return cmp.Compare(a.Score, b.Score)
	})
	return scores
}
