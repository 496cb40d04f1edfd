// Package asr runs isolated-word recognition sessions over an audio
// source.
//
// An Engine pulls frames from a Source on a separate goroutine and hands
// them, in order, through a bounded queue to the processing loop. The
// loop segments the stream into utterances with a voice activity
// detector, computes MFCC features for each utterance and matches them
// against the template library. Every utterance is reported to a handler
// as it completes.
package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/buffer"
	"github.com/haivivi/dtwasr/pkg/matcher"
	"github.com/haivivi/dtwasr/pkg/segment"
	"github.com/haivivi/dtwasr/pkg/vad"
)

// Utterance is one recognized (or rejected) segment.
type Utterance struct {
	Session  string         `json:"session" yaml:"session"`
	Index    int            `json:"index" yaml:"index"`
	Start    time.Duration  `json:"start" yaml:"start"`       // offset from the start of the stream
	Duration time.Duration  `json:"duration" yaml:"duration"` // audio length including lookback
	Frames   int            `json:"frames" yaml:"frames"`     // audio frames
	Features int            `json:"features" yaml:"features"` // feature vectors matched
	Forced   bool           `json:"forced,omitempty" yaml:"forced,omitempty"`
	Result   matcher.Result `json:"result" yaml:"result"`
}

// Handler receives utterances. Returning an error stops the run.
type Handler func(Utterance) error

// Config controls an Engine.
type Config struct {
	Format       pcm.Format     // input format (default L16Mono16K)
	FrameSize    int            // samples per frame (default 400)
	QueueSize    int            // frames buffered between source and processing (default 256)
	FlushAtEnd   bool           // recognize speech still open when the source ends (default true)
	Extractor    mfcc.Config    // query features; Stride is the query stride
	Segmentation segment.Config // lookback and length cap
	VAD          []vad.Option
}

// DefaultConfig returns the configuration for 16 kHz input in 25 ms frames.
func DefaultConfig() Config {
	return Config{
		Format:       pcm.L16Mono16K,
		FrameSize:    pcm.L16Mono16K.FrameSize(pcm.FrameDuration),
		QueueSize:    256,
		FlushAtEnd:   true,
		Extractor:    mfcc.DefaultConfig(),
		Segmentation: segment.DefaultConfig(),
	}
}

// Engine recognizes utterances from audio sources. An Engine may run
// several sessions concurrently; each Run has its own detector and
// segmenter and shares only the read-only matcher.
type Engine struct {
	cfg     Config
	matcher *matcher.Matcher
	archive archive.Archive
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// ErrNoMatcher is returned by NewEngine when no matcher is given.
var ErrNoMatcher = errors.New("asr: nil matcher")

// WithArchive saves each utterance's audio as "{session}.pcm".
func WithArchive(a archive.Archive) Option {
	return func(e *Engine) {
		if a != nil {
			e.archive = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine matching against m.
func NewEngine(cfg Config, m *matcher.Matcher, opts ...Option) (*Engine, error) {
	if m == nil {
		return nil, ErrNoMatcher
	}
	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("asr: invalid frame size %d", cfg.FrameSize)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if err := cfg.Extractor.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		matcher: m,
		archive: archive.Nop{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run processes src until it ends, ctx is done, or handle fails.
//
// It returns nil when the source reaches io.EOF, ctx.Err() on
// cancellation, and otherwise the wrapped source, feature or handler
// error.
//
// Run does not wait for a source blocked inside ReadFrame. The pump
// goroutine exits as soon as that call returns, so a source that ignores
// ctx is read at most once more after Run has returned.
func (e *Engine) Run(ctx context.Context, src Source, handle Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	q := buffer.QueueN[pcm.Frame](e.cfg.QueueSize)
	stop := context.AfterFunc(ctx, func() {
		q.CloseWithError(context.Cause(ctx))
	})
	defer func() {
		stop()
		cancel()
		q.Close()
	}()

	go e.pump(ctx, src, q)

	seg := segment.New(e.cfg.Segmentation, vad.New(append([]vad.Option{vad.WithLogger(e.logger)}, e.cfg.VAD...)...))
	e.logger.Info("session started", "frame_size", e.cfg.FrameSize, "templates", e.matcher.Library().Len())
	for {
		f, err := q.Pop()
		if errors.Is(err, io.EOF) {
			if s := seg.Flush(); s != nil && e.cfg.FlushAtEnd {
				if err := e.process(ctx, s, handle); err != nil {
					return err
				}
			}
			e.logger.Info("session ended")
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return ctxErr
			}
			return err
		}
		if s := seg.Push(f); s != nil {
			if err := e.process(ctx, s, handle); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) pump(ctx context.Context, src Source, q *buffer.Queue[pcm.Frame]) {
	for {
		f, err := src.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			q.CloseWrite()
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				q.CloseWithError(fmt.Errorf("asr: audio source: %w", err))
			}
			return
		}
		if len(f) != e.cfg.FrameSize {
			q.CloseWithError(fmt.Errorf("asr: audio source: frame has %d samples, want %d", len(f), e.cfg.FrameSize))
			return
		}
		if err := q.Push(f); err != nil {
			return
		}
	}
}

func (e *Engine) process(ctx context.Context, s *segment.Segment, handle Handler) error {
	session := e.sessionName(s.Index)
	samples := s.Samples()
	if err := e.archive.Save(ctx, session+".pcm", samples); err != nil {
		e.logger.Warn("archive utterance", "session", session, "error", err)
	}

	features, err := mfcc.ExtractSamples(e.cfg.Extractor, samples)
	if err != nil {
		return fmt.Errorf("asr: %s: %w", session, err)
	}
	res, err := e.matcher.Recognize(features)
	if err != nil {
		return fmt.Errorf("asr: %s: %w", session, err)
	}

	f := e.cfg.Format
	u := Utterance{
		Session:  session,
		Index:    s.Index,
		Start:    f.Duration(s.Start * e.cfg.FrameSize),
		Duration: f.Duration(len(samples)),
		Frames:   s.Len(),
		Features: len(features),
		Forced:   s.Forced,
		Result:   res,
	}
	e.logger.Info("utterance",
		"session", session,
		"result", res.String(),
		"start", u.Start,
		"duration", u.Duration,
		"stddev", res.Stats.StdDev,
		"range", res.Stats.Range,
	)
	if err := handle(u); err != nil {
		return fmt.Errorf("asr: handler: %w", err)
	}
	return nil
}

// sessionName returns s{yyMMdd_HHmm_ss_SSS}_{index}_{uuid prefix}.
func (e *Engine) sessionName(index int) string {
	t := e.now()
	return fmt.Sprintf("s%s_%03d_%06d_%s",
		t.Format("060102_1504_05"), t.Nanosecond()/int(time.Millisecond), index, uuid.NewString()[:8])
}

// RecognizeSamples runs one session over an in-memory recording and
// returns every utterance found.
func (e *Engine) RecognizeSamples(ctx context.Context, samples []int16) ([]Utterance, error) {
	var out []Utterance
	err := e.Run(ctx, NewSamplesSource(samples, e.cfg.FrameSize), func(u Utterance) error {
		out = append(out, u)
		return nil
	})
	return out, err
}
