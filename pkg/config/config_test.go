package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := cfg.FrameSize(); got != 400 {
		t.Errorf("FrameSize = %d, want 400", got)
	}
	if got, want := cfg.QueryExtractor(), mfcc.DefaultConfig(); got != want {
		t.Errorf("QueryExtractor = %+v, want %+v", got, want)
	}
	if cfg.VAD.ThresholdDB != -40 || cfg.VAD.StartFrames != 5 || cfg.VAD.EndFrames != 9 || cfg.VAD.LookbackFrames != 10 {
		t.Errorf("VAD = %+v", cfg.VAD)
	}
	if cfg.Matcher.MinStdDev != 50 || cfg.Matcher.MinRange != 100 {
		t.Errorf("Matcher = %+v", cfg.Matcher)
	}
	e := cfg.Engine()
	if e.FrameSize != 400 || e.Segmentation.Lookback != 10 || len(e.VAD) != 3 {
		t.Errorf("Engine = %+v", e)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	cfg := Default()
	cfg.SetPath(path)
	cfg.VAD.ThresholdDB = -35
	cfg.MFCC.QueryStride = 80
	cfg.Archive.Kind = "local"
	cfg.Archive.Dir = "/tmp/segments"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.VAD.ThresholdDB != -35 || got.MFCC.QueryStride != 80 || got.MFCC.TemplateStride != 160 {
		t.Errorf("loaded %+v %+v", got.VAD, got.MFCC)
	}
	if got.Archive.Kind != "local" || got.Archive.Dir != "/tmp/segments" {
		t.Errorf("archive = %+v", got.Archive)
	}
	if got.Path() != path {
		t.Errorf("Path = %q", got.Path())
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	doc := "vad:\n  end_frames: 12\nmatcher:\n  min_range: 250\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VAD.EndFrames != 12 || cfg.VAD.StartFrames != 5 {
		t.Errorf("VAD = %+v", cfg.VAD)
	}
	if cfg.Matcher.MinRange != 250 || cfg.Matcher.MinStdDev != 50 {
		t.Errorf("Matcher = %+v", cfg.Matcher)
	}
	if cfg.MFCC.Filters != 26 {
		t.Errorf("MFCC.Filters = %d", cfg.MFCC.Filters)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "vad: [1, 2"},
		{"fft size", "mfcc:\n  fft_size: 500\n"},
		{"stride", "mfcc:\n  query_stride: 0\n"},
		{"frame", "audio:\n  frame_ms: 0\n"},
		{"archive", "archive:\n  kind: ftp\n"},
		{"threshold", "matcher:\n  min_range: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
}

func TestLoadWithFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	want := filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	if cfg.Path() != want {
		t.Errorf("Path = %q, want %q", cfg.Path(), want)
	}
	if cfg.StoreDir() != filepath.Join(home, DefaultBaseDir, "templates") {
		t.Errorf("StoreDir = %q", cfg.StoreDir())
	}

	cfg.VAD.LookbackFrames = 4
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadWithFallback("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VAD.LookbackFrames != 4 {
		t.Errorf("LookbackFrames = %d, want 4", cfg.VAD.LookbackFrames)
	}

	if _, err := LoadWithFallback(filepath.Join(home, "nope.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := ExpandHome("~/words"); got != filepath.Join(home, "words") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("ExpandHome(~user/x) = %q", got)
	}

	cfg := Default()
	cfg.Archive.Dir = "~/arch"
	if got := cfg.ArchiveConfig().Dir; got != filepath.Join(home, "arch") {
		t.Errorf("ArchiveConfig().Dir = %q", got)
	}
}
