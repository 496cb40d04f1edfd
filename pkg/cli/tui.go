package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/dtwasr/pkg/asr"
	"github.com/haivivi/dtwasr/pkg/matcher"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color // recognized labels
	Reject  lipgloss.Color // rejected results
	Dim     lipgloss.Color // details
}

// DefaultTheme is the bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Reject:  lipgloss.Color("#ff6b6b"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Match  lipgloss.Style
	Reject lipgloss.Style
	Detail lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Match:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Reject: lipgloss.NewStyle().Italic(true).Foreground(t.Reject),
		Detail: lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// RenderResult renders the label, or "no match", in its style.
func (s Styles) RenderResult(r matcher.Result) string {
	if r.Recognized {
		return s.Match.Render(r.Label)
	}
	return s.Reject.Render(matcher.NoMatch)
}

// RenderUtterance renders one line:
//
//	0:01.250  yes  (620ms, σ 212.4, range 424.9)
func (s Styles) RenderUtterance(u asr.Utterance) string {
	detail := fmt.Sprintf("(%s, σ %.1f, range %.1f)",
		FormatDuration(u.Duration), u.Result.Stats.StdDev, u.Result.Stats.Range)
	if u.Forced {
		detail += " cut"
	}
	return FormatOffset(u.Start) + "  " + s.RenderResult(u.Result) + "  " + s.Detail.Render(detail)
}

// RenderScores renders the per-label scores, best first, one per line.
func (s Styles) RenderScores(r matcher.Result) []string {
	width := 0
	for _, e := range r.Scores {
		width = max(width, lipgloss.Width(e.Label))
	}
	lines := make([]string, 0, len(r.Scores))
	for i, e := range r.Scores {
		label := e.Label + strings.Repeat(" ", width-lipgloss.Width(e.Label))
		if i == 0 && r.Recognized {
			label = s.Match.Render(label)
		}
		lines = append(lines, fmt.Sprintf("  %s  %s", label,
			s.Detail.Render(fmt.Sprintf("%9.1f  n=%d", e.Score, len(e.Distances)))))
	}
	return lines
}
