// Package main provides the dtwasr CLI, an isolated-word speech
// recognizer that matches MFCC features against recorded templates with
// dynamic time warping.
//
// Usage:
//
//	dtwasr [flags] <command> [args]
//
// Commands:
//
//	listen      - Recognize words from the microphone
//	recognize   - Recognize words in a recording
//	templates   - Import, list and delete templates
//	synth       - Write a synthetic test word
//	devices     - List input devices
//	config      - Show or initialize the configuration
//
// Configuration:
//
//	The CLI reads ~/.dtwasr/config.yaml and keeps templates in
//	~/.dtwasr/templates unless configured otherwise.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/dtwasr/cmd/dtwasr/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
