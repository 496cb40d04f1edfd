package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/audio/synth"
	"github.com/haivivi/dtwasr/pkg/cli"
)

var (
	synthFreqs     []float64
	synthToneMS    int
	synthAmplitude float64
	synthSeed      uint64
	synthOut       string
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write a synthetic test word",
	Long: `Render a "word" made of harmonic tones between low-level background noise.
Tones are played in the order given. The output is WAV unless the file name
ends in .pcm.

Examples:
  # Two words that differ only in tone order
  dtwasr synth --freq 500 --freq 1200 --out words/up.wav
  dtwasr synth --freq 1200 --freq 500 --out words/down.wav --seed 2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if synthOut == "" {
			return fmt.Errorf("--out is required")
		}
		if len(synthFreqs) == 0 {
			return fmt.Errorf("at least one --freq is required")
		}
		word := make(synth.Word, len(synthFreqs))
		for i, f := range synthFreqs {
			word[i] = synth.Tone{Freq: f, Duration: time.Duration(synthToneMS) * time.Millisecond}
		}
		cfg := synth.DefaultConfig()
		cfg.Amplitude = synthAmplitude
		cfg.Seed = synthSeed
		samples := synth.Render(word, cfg)

		if err := writeRecording(synthOut, samples, cfg.SampleRate); err != nil {
			return err
		}
		cli.PrintSuccess("Wrote %s (%s)", synthOut, cli.FormatDuration(pcm.L16Mono16K.Duration(len(samples))))
		return nil
	},
}

func init() {
	synthCmd.Flags().Float64SliceVar(&synthFreqs, "freq", nil, "tone frequency in Hz (repeatable)")
	synthCmd.Flags().IntVar(&synthToneMS, "ms", 250, "duration of each tone in milliseconds")
	synthCmd.Flags().Float64Var(&synthAmplitude, "amplitude", 8000, "peak of the fundamental")
	synthCmd.Flags().Uint64Var(&synthSeed, "seed", 1, "background noise seed")
	synthCmd.Flags().StringVar(&synthOut, "out", "", "output file (.wav or .pcm)")
}

func writeRecording(path string, samples []int16, rate int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".pcm") {
		return pcm.WriteSamples(f, samples)
	}
	return pcm.WriteWAV(f, samples, rate)
}
