package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/asr"
	"github.com/haivivi/dtwasr/pkg/cli"
	"github.com/haivivi/dtwasr/pkg/config"
	"github.com/haivivi/dtwasr/pkg/matcher"
	"github.com/haivivi/dtwasr/pkg/templates"
)

var (
	// Global flags
	cfgFile      string
	outputFile   string
	outputJSON   bool
	verbose      bool
	templatesDir string
	storeDir     string

	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dtwasr",
	Short: "Isolated-word speech recognizer",
	Long: `dtwasr recognizes isolated spoken words by comparing MFCC features of each
utterance against labeled template recordings with dynamic time warping.
Utterances that are not clearly closer to one label are reported as "no match".

Templates are recordings named after their label (yes.wav, no.1.pcm) or
listed in a labels.yaml manifest. Import them once into the template store,
or point --templates at a directory to use it directly.

Examples:
  # Import templates and listen to the microphone
  dtwasr templates import ./words
  dtwasr listen

  # Recognize a recording without touching the store
  dtwasr --templates ./words recognize query.wav --json
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dtwasr/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&templatesDir, "templates", "", "load templates from this directory instead of the store")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store", "", "template store directory (default from config)")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	globalConfig, err = config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func getConfig() *config.Config {
	return globalConfig
}

func openStore() (*templates.BadgerStore, error) {
	dir := storeDir
	if dir == "" {
		dir = getConfig().StoreDir()
	}
	return templates.NewBadgerStore(templates.BadgerOptions{Dir: config.ExpandHome(dir)})
}

func newLoader(a archive.Archive) *templates.Loader {
	cfg := getConfig()
	return templates.NewLoader(
		templates.WithExtractor(cfg.TemplateExtractor()),
		templates.WithSegmentation(cfg.Segmentation()),
		templates.WithVAD(cfg.VADOptions()...),
		templates.WithArchive(a),
	)
}

// loadLibrary reads templates from --templates when given. Otherwise it
// reads the store, importing the configured templates dir first when the
// store is empty.
func loadLibrary(ctx context.Context) (*matcher.Library, error) {
	if templatesDir != "" {
		s := templates.NewMemoryStore()
		if _, err := templates.Import(ctx, newLoader(nil), s, templatesDir); err != nil {
			return nil, err
		}
		return templates.LoadLibrary(ctx, s)
	}

	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	lib, err := templates.LoadLibrary(ctx, s)
	if err != nil {
		return nil, err
	}
	if dir := getConfig().Templates.Dir; lib.Len() == 0 && dir != "" {
		slog.Info("template store is empty, importing", "dir", dir)
		if _, err := templates.Import(ctx, newLoader(nil), s, config.ExpandHome(dir)); err != nil {
			return nil, err
		}
		return templates.LoadLibrary(ctx, s)
	}
	return lib, nil
}

func newEngine(ctx context.Context) (*asr.Engine, error) {
	lib, err := loadLibrary(ctx)
	if err != nil {
		return nil, err
	}
	if lib.Len() == 0 {
		slog.Warn("no templates loaded, every utterance will be rejected")
	}
	cfg := getConfig()
	a, err := archive.Open(cfg.ArchiveConfig())
	if err != nil {
		return nil, err
	}
	return asr.NewEngine(cfg.Engine(), matcher.New(lib, cfg.MatcherOptions()...), asr.WithArchive(a))
}

func outputFormat() cli.OutputFormat {
	if outputJSON {
		return cli.FormatJSON
	}
	return cli.FormatYAML
}

func outputResult(result any) error {
	return cli.Output(result, cli.OutputOptions{
		Format: outputFormat(),
		File:   outputFile,
	})
}
