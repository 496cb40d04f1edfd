package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/dtwasr/pkg/audio/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
		defer portaudio.Terminate()

		devices, err := portaudio.InputDevices()
		if err != nil {
			return err
		}
		if outputJSON || outputFile != "" {
			return outputResult(devices)
		}
		for _, d := range devices {
			marker := ""
			if d.Default {
				marker = " [DEFAULT]"
			}
			fmt.Printf("%d: %s%s\n", d.Index, d.Name, marker)
			fmt.Printf("   channels: %d, default rate: %.0f Hz\n", d.Channels, d.DefaultSampleRate)
		}
		return nil
	},
}
