package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/dtwasr/pkg/asr"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <file>",
	Short: "Recognize words in a recording",
	Long: `Recognize every utterance in a recording. WAV files are converted to
16 kHz mono; any other file, or "-" for stdin, is read as raw 16 kHz
little-endian 16-bit PCM.

Examples:
  dtwasr recognize query.wav
  arecord -f S16_LE -r 16000 -c 1 -t raw | dtwasr recognize - --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, err := newEngine(ctx)
		if err != nil {
			return err
		}

		var utts []asr.Utterance
		if args[0] == "-" {
			src := asr.NewReaderSource(os.Stdin, getConfig().FrameSize())
			err = engine.Run(ctx, src, func(u asr.Utterance) error {
				utts = append(utts, u)
				return nil
			})
		} else {
			utts, err = recognizeFile(ctx, engine, args[0])
		}
		if err != nil {
			return err
		}
		if utts == nil {
			utts = []asr.Utterance{}
		}
		return outputResult(utts)
	},
}

func recognizeFile(ctx context.Context, engine *asr.Engine, path string) ([]asr.Utterance, error) {
	samples, err := pcm.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return engine.RecognizeSamples(ctx, samples)
}
