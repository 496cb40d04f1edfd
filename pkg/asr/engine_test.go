package asr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/audio/synth"
	"github.com/haivivi/dtwasr/pkg/matcher"
)

const (
	lowHz  = 500
	highHz = 1200
)

func twoTone(first, second float64) synth.Word {
	return synth.Word{
		{Freq: first, Duration: 250 * time.Millisecond},
		{Freq: second, Duration: 250 * time.Millisecond},
	}
}

var variants = []struct {
	scale, amp float64
	seed       uint64
}{
	{0.98, 7600, 1},
	{1.00, 8000, 2},
	{1.02, 8400, 3},
}

func render(w synth.Word, scale, amp float64, seed uint64, lead, tail time.Duration) []int16 {
	cfg := synth.DefaultConfig()
	cfg.Amplitude = amp
	cfg.Seed = seed
	cfg.Lead = lead
	cfg.Tail = tail
	scaled := make(synth.Word, len(w))
	for i, t := range w {
		scaled[i] = synth.Tone{Freq: t.Freq * scale, Duration: t.Duration}
	}
	return synth.Render(scaled, cfg)
}

func addTemplates(t *testing.T, lib *matcher.Library, label string, w synth.Word) {
	t.Helper()
	for i, v := range variants {
		samples := render(w, v.scale, v.amp, v.seed, 250*time.Millisecond, 225*time.Millisecond)
		seq, err := mfcc.ExtractSamples(mfcc.DefaultConfig(), samples)
		if err != nil {
			t.Fatalf("template %s/%d: %v", label, i, err)
		}
		if err := lib.Add(matcher.Template{ID: label + string(rune('a'+i)), Label: label, Features: seq}); err != nil {
			t.Fatal(err)
		}
	}
}

func yesNoLibrary(t *testing.T) *matcher.Library {
	t.Helper()
	lib, _ := matcher.NewLibrary()
	addTemplates(t, lib, "yes", twoTone(lowHz, highHz))
	addTemplates(t, lib, "no", twoTone(highHz, lowHz))
	return lib
}

func newEngine(t *testing.T, lib *matcher.Library, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), matcher.New(lib), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func query(w synth.Word) []int16 {
	return render(w, 1.01, 7900, 99, 300*time.Millisecond, 400*time.Millisecond)
}

func TestEngineRecognizesWords(t *testing.T) {
	e := newEngine(t, yesNoLibrary(t))

	tests := []struct {
		name string
		word synth.Word
		want string
	}{
		{"yes", twoTone(lowHz, highHz), "yes"},
		{"no", twoTone(highHz, lowHz), "no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			utts, err := e.RecognizeSamples(context.Background(), query(tt.word))
			if err != nil {
				t.Fatalf("RecognizeSamples: %v", err)
			}
			if len(utts) != 1 {
				t.Fatalf("got %d utterances, want 1", len(utts))
			}
			u := utts[0]
			if !u.Result.Recognized || u.Result.Label != tt.want {
				t.Errorf("result = %v (stats %+v), want %s", u.Result, u.Result.Stats, tt.want)
			}
			if u.Forced {
				t.Error("utterance should end on silence")
			}
			if u.Frames*400 != int(u.Duration/pcm.L16Mono16K.Duration(1)) {
				t.Errorf("duration %v does not match %d frames", u.Duration, u.Frames)
			}
		})
	}
}

func TestEngineRejectsNoise(t *testing.T) {
	e := newEngine(t, yesNoLibrary(t))
	cfg := synth.DefaultConfig()
	cfg.Seed = 42
	noise := synth.Noise(500*time.Millisecond, 3000, cfg)

	utts, err := e.RecognizeSamples(context.Background(), noise)
	if err != nil {
		t.Fatalf("RecognizeSamples: %v", err)
	}
	if len(utts) != 1 {
		t.Fatalf("got %d utterances, want 1", len(utts))
	}
	if r := utts[0].Result; r.Recognized {
		t.Errorf("noise recognized as %q (stats %+v)", r.Label, r.Stats)
	}
}

func TestEngineRejectsIndistinctLabels(t *testing.T) {
	lib, _ := matcher.NewLibrary()
	addTemplates(t, lib, "yes", twoTone(lowHz, highHz))
	addTemplates(t, lib, "oui", twoTone(lowHz, highHz))
	e := newEngine(t, lib)

	utts, err := e.RecognizeSamples(context.Background(), query(twoTone(lowHz, highHz)))
	if err != nil {
		t.Fatalf("RecognizeSamples: %v", err)
	}
	if len(utts) != 1 {
		t.Fatalf("got %d utterances, want 1", len(utts))
	}
	if r := utts[0].Result; r.Recognized || r.String() != matcher.NoMatch {
		t.Errorf("result = %v, want %q", r, matcher.NoMatch)
	}
}

func TestEngineSeveralUtterances(t *testing.T) {
	e := newEngine(t, yesNoLibrary(t))
	samples := synth.Concat(query(twoTone(lowHz, highHz)), query(twoTone(highHz, lowHz)))

	var got []string
	var indexes []int
	err := e.Run(context.Background(), NewSamplesSource(samples, 400), func(u Utterance) error {
		got = append(got, u.Result.String())
		indexes = append(indexes, u.Index)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 || got[0] != "yes" || got[1] != "no" {
		t.Fatalf("got %v, want [yes no]", got)
	}
	if indexes[0] != 0 || indexes[1] != 1 {
		t.Errorf("indexes = %v", indexes)
	}
}

func TestEngineSilence(t *testing.T) {
	e := newEngine(t, yesNoLibrary(t))
	cfg := synth.DefaultConfig()
	utts, err := e.RecognizeSamples(context.Background(), synth.Render(nil, cfg))
	if err != nil {
		t.Fatalf("RecognizeSamples: %v", err)
	}
	if len(utts) != 0 {
		t.Errorf("got %d utterances from background noise", len(utts))
	}
}

func TestEngineFlushAtEnd(t *testing.T) {
	samples := render(twoTone(lowHz, highHz), 1, 8000, 7, 300*time.Millisecond, 0)

	t.Run("flush", func(t *testing.T) {
		e := newEngine(t, yesNoLibrary(t))
		utts, err := e.RecognizeSamples(context.Background(), samples)
		if err != nil {
			t.Fatalf("RecognizeSamples: %v", err)
		}
		if len(utts) != 1 {
			t.Fatalf("got %d utterances, want 1", len(utts))
		}
	})

	t.Run("drop", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FlushAtEnd = false
		e, err := NewEngine(cfg, matcher.New(yesNoLibrary(t)))
		if err != nil {
			t.Fatal(err)
		}
		utts, err := e.RecognizeSamples(context.Background(), samples)
		if err != nil {
			t.Fatalf("RecognizeSamples: %v", err)
		}
		if len(utts) != 0 {
			t.Fatalf("got %d utterances, want 0", len(utts))
		}
	})
}

func TestEngineSessionName(t *testing.T) {
	e := newEngine(t, yesNoLibrary(t))
	e.now = func() time.Time {
		return time.Date(2024, 3, 9, 14, 5, 7, 42*int(time.Millisecond), time.UTC)
	}
	name := e.sessionName(12)
	re := regexp.MustCompile(`^s240309_1405_07_042_000012_[0-9a-f]{8}$`)
	if !re.MatchString(name) {
		t.Errorf("sessionName = %q", name)
	}
	if e.sessionName(12) == name {
		t.Error("session names should be unique")
	}
}

func TestEngineArchive(t *testing.T) {
	store, err := archive.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e := newEngine(t, yesNoLibrary(t), WithArchive(store))

	utts, err := e.RecognizeSamples(context.Background(), query(twoTone(lowHz, highHz)))
	if err != nil {
		t.Fatalf("RecognizeSamples: %v", err)
	}
	if len(utts) != 1 {
		t.Fatalf("got %d utterances, want 1", len(utts))
	}
	saved, err := store.Load(context.Background(), utts[0].Session+".pcm")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(saved) != utts[0].Frames*400 {
		t.Errorf("archived %d samples, want %d", len(saved), utts[0].Frames*400)
	}
}

func TestEngineCancel(t *testing.T) {
	e := newEngine(t, yesNoLibrary(t))
	quiet := make(pcm.Frame, 400)
	for i := range quiet {
		quiet[i] = int16(i%5 - 2)
	}
	src := SourceFunc(func(ctx context.Context) (pcm.Frame, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
			return append(pcm.Frame(nil), quiet...), nil
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := e.Run(ctx, src, func(Utterance) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}
}

func TestEngineErrors(t *testing.T) {
	lib := yesNoLibrary(t)

	t.Run("source", func(t *testing.T) {
		boom := errors.New("device lost")
		e := newEngine(t, lib)
		err := e.Run(context.Background(), SourceFunc(func(context.Context) (pcm.Frame, error) {
			return nil, boom
		}), func(Utterance) error { return nil })
		if !errors.Is(err, boom) {
			t.Fatalf("Run = %v, want %v", err, boom)
		}
	})

	t.Run("frame size", func(t *testing.T) {
		e := newEngine(t, lib)
		err := e.Run(context.Background(), SourceFunc(func(context.Context) (pcm.Frame, error) {
			return make(pcm.Frame, 10), nil
		}), func(Utterance) error { return nil })
		if err == nil {
			t.Fatal("expected frame size error")
		}
	})

	t.Run("handler", func(t *testing.T) {
		stop := errors.New("stop")
		e := newEngine(t, lib)
		samples := synth.Concat(query(twoTone(lowHz, highHz)), query(twoTone(highHz, lowHz)))
		calls := 0
		err := e.Run(context.Background(), NewSamplesSource(samples, 400), func(Utterance) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Fatalf("Run = %v, want %v", err, stop)
		}
		if calls != 1 {
			t.Errorf("handler called %d times, want 1", calls)
		}
	})

	t.Run("digital silence", func(t *testing.T) {
		e := newEngine(t, lib)
		samples := make([]int16, 16000)
		for i := 4000; i < 12000; i++ {
			samples[i] = int16(8000 * (i%2*2 - 1))
		}
		_, err := e.RecognizeSamples(context.Background(), samples)
		if !errors.Is(err, mfcc.ErrNonPositiveEnergy) {
			t.Fatalf("err = %v, want %v", err, mfcc.ErrNonPositiveEnergy)
		}
	})
}

func TestReaderSource(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = int16(i)
	}
	src := NewReaderSource(bytes.NewReader(pcm.Encode(samples)), 400)
	ctx := context.Background()

	var frames []pcm.Frame
	for {
		f, err := src.ReadFrame(ctx)
		if err != nil {
			break
		}
		frames = append(frames, f)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[2][199] != 999 || frames[2][200] != 0 {
		t.Errorf("last frame not zero padded: %v", frames[2][195:205])
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewSamplesSource(samples, 400).ReadFrame(cctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadFrame on canceled context = %v", err)
	}
}

func TestNewEngineNilMatcher(t *testing.T) {
	if _, err := NewEngine(DefaultConfig(), nil); !errors.Is(err, ErrNoMatcher) {
		t.Fatalf("NewEngine(nil) = %v, want %v", err, ErrNoMatcher)
	}
}

func TestEngineBlockedSource(t *testing.T) {
	// The source stalls after the recording like an idle stdin and never
	// looks at ctx.
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	newSource := func() Source {
		inner := NewSamplesSource(query(twoTone(lowHz, highHz)), 400)
		return SourceFunc(func(ctx context.Context) (pcm.Frame, error) {
			f, err := inner.ReadFrame(ctx)
			if errors.Is(err, io.EOF) {
				<-release
			}
			return f, err
		})
	}

	run := func(t *testing.T, ctx context.Context, handle Handler) error {
		t.Helper()
		e := newEngine(t, yesNoLibrary(t))
		done := make(chan error, 1)
		go func() { done <- e.Run(ctx, newSource(), handle) }()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("Run did not return while the source was blocked")
			return nil
		}
	}

	t.Run("handler error", func(t *testing.T) {
		stop := errors.New("stop")
		err := run(t, context.Background(), func(Utterance) error { return stop })
		if !errors.Is(err, stop) {
			t.Fatalf("Run = %v, want %v", err, stop)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var got []Utterance
		err := run(t, ctx, func(u Utterance) error {
			got = append(got, u)
			cancel()
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want %v", err, context.Canceled)
		}
		if len(got) != 1 {
			t.Errorf("handled %d utterances, want 1", len(got))
		}
	})
}
