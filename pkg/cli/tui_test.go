package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/haivivi/dtwasr/pkg/asr"
	"github.com/haivivi/dtwasr/pkg/matcher"
)

func TestRenderUtterance(t *testing.T) {
	s := NewStyles(DefaultTheme)
	u := asr.Utterance{
		Start:    1250 * time.Millisecond,
		Duration: 620 * time.Millisecond,
		Result: matcher.Result{
			Recognized: true,
			Label:      "yes",
			Stats:      matcher.Stats{StdDev: 212.4, Range: 424.9},
		},
	}
	line := s.RenderUtterance(u)
	for _, want := range []string{"0:01.250", "yes", "620ms", "212.4", "424.9"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}

	u.Result.Recognized = false
	u.Forced = true
	line = s.RenderUtterance(u)
	if !strings.Contains(line, matcher.NoMatch) || !strings.Contains(line, "cut") {
		t.Errorf("rejected line = %q", line)
	}
}

func TestRenderScores(t *testing.T) {
	s := NewStyles(DefaultTheme)
	r := matcher.Result{
		Recognized: true,
		Label:      "yes",
		Scores: []matcher.ScoreEntry{
			{Label: "yes", Distances: []float64{100, 120}, Score: 110},
			{Label: "stop", Distances: []float64{500}, Score: 500},
		},
	}
	lines := s.RenderScores(r)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "110.0") || !strings.Contains(lines[0], "n=2") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "stop") || !strings.Contains(lines[1], "500.0") {
		t.Errorf("line 1 = %q", lines[1])
	}
}
