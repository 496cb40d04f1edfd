// Package config loads and saves the dtwasr YAML configuration and maps
// its sections onto the configuration of each package.
//
// The default file is ~/.dtwasr/config.yaml:
//
//	audio:
//	  frame_ms: 25
//	  device: ""
//	vad:
//	  threshold_db: -40
//	  start_frames: 5
//	  end_frames: 9
//	  lookback_frames: 10
//	mfcc:
//	  filters: 26
//	  coefficients: 13
//	  query_stride: 160
//	  template_stride: 160
//	matcher:
//	  min_stddev: 50
//	  min_range: 100
//	templates:
//	  dir: ~/words
//	archive:
//	  kind: local
//	  dir: ~/.dtwasr/archive
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/asr"
	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/matcher"
	"github.com/haivivi/dtwasr/pkg/segment"
	"github.com/haivivi/dtwasr/pkg/vad"
)

const (
	// DefaultBaseDir is the configuration directory under the home directory.
	DefaultBaseDir = ".dtwasr"
	// DefaultConfigFile is the configuration file name.
	DefaultConfigFile = "config.yaml"
)

// Config is the complete configuration.
type Config struct {
	Audio     Audio          `yaml:"audio"`
	VAD       VAD            `yaml:"vad"`
	MFCC      MFCC           `yaml:"mfcc"`
	Matcher   Matcher        `yaml:"matcher"`
	Templates Templates      `yaml:"templates"`
	Archive   archive.Config `yaml:"archive"`

	path string
}

// Audio configures capture.
type Audio struct {
	FrameMS     int    `yaml:"frame_ms"`
	Device      string `yaml:"device,omitempty"` // input device name, empty for the default
	QueueFrames int    `yaml:"queue_frames"`     // frames buffered between capture and processing
}

// VAD configures voice activity detection and segmentation.
type VAD struct {
	ThresholdDB    float64 `yaml:"threshold_db"`
	StartFrames    int     `yaml:"start_frames"`
	EndFrames      int     `yaml:"end_frames"`
	LookbackFrames int     `yaml:"lookback_frames"`
	MaxFrames      int     `yaml:"max_frames,omitempty"`
}

// MFCC configures feature extraction.
type MFCC struct {
	Filters        int     `yaml:"filters"`
	Coefficients   int     `yaml:"coefficients"`
	FFTSize        int     `yaml:"fft_size"`
	WindowSize     int     `yaml:"window_size"`
	LowFreq        float64 `yaml:"low_freq"`
	HighFreq       float64 `yaml:"high_freq"`
	PreEmphasis    float64 `yaml:"pre_emphasis"`
	QueryStride    int     `yaml:"query_stride"`
	TemplateStride int     `yaml:"template_stride"`
	BufferCapacity int     `yaml:"buffer_capacity"`
}

// Matcher configures rejection.
type Matcher struct {
	MinStdDev float64 `yaml:"min_stddev"`
	MinRange  float64 `yaml:"min_range"`
	Workers   int     `yaml:"workers,omitempty"`
}

// Templates locates the template recordings and store.
type Templates struct {
	Dir      string `yaml:"dir,omitempty"`       // recordings imported when the store is empty
	StoreDir string `yaml:"store_dir,omitempty"` // badger directory, default ~/.dtwasr/templates
}

// Default returns the built-in configuration.
func Default() *Config {
	m := mfcc.DefaultConfig()
	th := matcher.DefaultThresholds()
	rules := vad.DefaultRules()
	return &Config{
		Audio: Audio{
			FrameMS:     int(pcm.FrameDuration / time.Millisecond),
			QueueFrames: 256,
		},
		VAD: VAD{
			ThresholdDB:    -40,
			StartFrames:    rules.StartFrames,
			EndFrames:      rules.EndFrames,
			LookbackFrames: segment.DefaultConfig().Lookback,
		},
		MFCC: MFCC{
			Filters:        m.NumFilters,
			Coefficients:   m.NumCoefficients,
			FFTSize:        m.FFTSize,
			WindowSize:     m.WindowSize,
			LowFreq:        m.LowFreq,
			HighFreq:       m.HighFreq,
			PreEmphasis:    m.PreEmphasis,
			QueryStride:    m.Stride,
			TemplateStride: m.Stride,
			BufferCapacity: m.BufferCapacity,
		},
		Matcher: Matcher{
			MinStdDev: th.MinStdDev,
			MinRange:  th.MinRange,
		},
		Archive: archive.Config{Kind: "none"},
	}
}

// DefaultPath returns ~/.dtwasr/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home directory: %w", err)
	}
	return filepath.Join(home, DefaultBaseDir, DefaultConfigFile), nil
}

// Load reads path. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWithFallback loads explicit when set. Otherwise it loads the
// default path if it exists, or returns Default bound to the default path.
func LoadWithFallback(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.path = path
		return cfg, nil
	}
	return cfg, err
}

// Save writes the configuration to its path, creating the directory.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config: no path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// SetPath changes where Save writes.
func (c *Config) SetPath(path string) {
	c.path = path
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory holding the config file.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// Validate checks values that the packages would reject later.
func (c *Config) Validate() error {
	if c.Audio.FrameMS <= 0 {
		return fmt.Errorf("audio.frame_ms must be positive, got %d", c.Audio.FrameMS)
	}
	if c.VAD.StartFrames <= 0 || c.VAD.EndFrames <= 0 {
		return fmt.Errorf("vad frame counts must be positive")
	}
	if c.Matcher.MinStdDev < 0 || c.Matcher.MinRange < 0 {
		return fmt.Errorf("matcher thresholds must not be negative")
	}
	if err := c.QueryExtractor().Validate(); err != nil {
		return err
	}
	if err := c.TemplateExtractor().Validate(); err != nil {
		return err
	}
	switch c.Archive.Kind {
	case "", "none", "local", "s3":
	default:
		return fmt.Errorf("unknown archive kind %q", c.Archive.Kind)
	}
	return nil
}

func (c *Config) extractor(stride int) mfcc.Config {
	return mfcc.Config{
		SampleRate:      pcm.L16Mono16K.SampleRate(),
		WindowSize:      c.MFCC.WindowSize,
		Stride:          stride,
		FFTSize:         c.MFCC.FFTSize,
		NumFilters:      c.MFCC.Filters,
		NumCoefficients: c.MFCC.Coefficients,
		LowFreq:         c.MFCC.LowFreq,
		HighFreq:        c.MFCC.HighFreq,
		PreEmphasis:     c.MFCC.PreEmphasis,
		BufferCapacity:  c.MFCC.BufferCapacity,
	}
}

// QueryExtractor returns the MFCC configuration for recognition queries.
func (c *Config) QueryExtractor() mfcc.Config {
	return c.extractor(c.MFCC.QueryStride)
}

// TemplateExtractor returns the MFCC configuration for templates.
func (c *Config) TemplateExtractor() mfcc.Config {
	return c.extractor(c.MFCC.TemplateStride)
}

// VADOptions returns the detector options.
func (c *Config) VADOptions() []vad.Option {
	return []vad.Option{
		vad.WithThreshold(c.VAD.ThresholdDB),
		vad.WithStartFrames(c.VAD.StartFrames),
		vad.WithEndFrames(c.VAD.EndFrames),
	}
}

// Segmentation returns the segmenter configuration.
func (c *Config) Segmentation() segment.Config {
	return segment.Config{Lookback: c.VAD.LookbackFrames, MaxFrames: c.VAD.MaxFrames}
}

// MatcherOptions returns the matcher options.
func (c *Config) MatcherOptions() []matcher.Option {
	return []matcher.Option{
		matcher.WithThresholds(matcher.Thresholds{MinStdDev: c.Matcher.MinStdDev, MinRange: c.Matcher.MinRange}),
		matcher.WithWorkers(c.Matcher.Workers),
	}
}

// FrameSize returns the samples per frame.
func (c *Config) FrameSize() int {
	return pcm.L16Mono16K.FrameSize(time.Duration(c.Audio.FrameMS) * time.Millisecond)
}

// Engine returns the session configuration.
func (c *Config) Engine() asr.Config {
	cfg := asr.DefaultConfig()
	cfg.FrameSize = c.FrameSize()
	cfg.QueueSize = c.Audio.QueueFrames
	cfg.Extractor = c.QueryExtractor()
	cfg.Segmentation = c.Segmentation()
	cfg.VAD = c.VADOptions()
	return cfg
}

// StoreDir returns the template store directory, expanding a leading ~.
// An unset value resolves to "templates" next to the config file.
func (c *Config) StoreDir() string {
	if c.Templates.StoreDir != "" {
		return ExpandHome(c.Templates.StoreDir)
	}
	return filepath.Join(c.Dir(), "templates")
}

// ArchiveConfig returns the archive configuration with ~ expanded.
func (c *Config) ArchiveConfig() archive.Config {
	a := c.Archive
	a.Dir = ExpandHome(a.Dir)
	return a
}

// ExpandHome replaces a leading "~/" with the home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
