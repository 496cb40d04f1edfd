package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/dtwasr/pkg/asr"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/audio/portaudio"
	"github.com/haivivi/dtwasr/pkg/cli"
)

var listenDevice string

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Recognize words from the microphone",
	Long: `Capture 16 kHz mono audio from an input device and print every utterance
as it ends. Press Ctrl-C to stop.

With --json each utterance is written as one JSON line.

Example:
  dtwasr listen --device "USB"`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenDevice, "device", "", "input device name (default from config, then system default)")
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}

	name := listenDevice
	if name == "" {
		name = getConfig().Audio.Device
	}
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()
	device, err := portaudio.FindInputDevice(name)
	if err != nil {
		return err
	}
	mic, err := portaudio.OpenMicrophone(device, pcm.L16Mono16K, getConfig().FrameSize())
	if err != nil {
		return fmt.Errorf("open %s: %w", device.Name, err)
	}
	defer mic.Close()

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	styles := cli.NewStyles(cli.DefaultTheme)
	if !outputJSON {
		fmt.Fprintln(os.Stderr, styles.Title.Render("listening on "+device.Name))
	}
	err = engine.Run(ctx, mic, func(u asr.Utterance) error {
		if outputJSON {
			return cli.Write(out, cli.FormatJSONL, u)
		}
		fmt.Fprintln(out, styles.RenderUtterance(u))
		if verbose {
			for _, line := range styles.RenderScores(u.Result) {
				fmt.Fprintln(out, line)
			}
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
