package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/audio/synth"
)

func word(freq float64, seed uint64) []int16 {
	cfg := synth.DefaultConfig()
	cfg.Seed = seed
	return synth.Render(synth.Word{{Freq: freq, Duration: 400 * time.Millisecond}}, cfg)
}

func writeWAV(t *testing.T, path string, samples []int16, rate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := pcm.WriteWAV(f, samples, rate); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
}

func writePCM(t *testing.T, path string, samples []int16) {
	t.Helper()
	if err := os.WriteFile(path, pcm.Encode(samples), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLabelFromName(t *testing.T) {
	tests := []struct{ name, want string }{
		{"yes.pcm", "yes"},
		{"yes.1.wav", "yes"},
		{"dir/no.take2.pcm", "no"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := LabelFromName(tt.name); got != tt.want {
			t.Errorf("LabelFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsRecording(t *testing.T) {
	for name, want := range map[string]bool{
		"a.pcm": true, "a.WAV": true, "a.txt": false, "labels.yaml": false, "pcm": false,
	} {
		if got := IsRecording(name); got != want {
			t.Errorf("IsRecording(%q) = %v", name, got)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writePCM(t, filepath.Join(dir, "yes.pcm"), word(600, 1))
	writeWAV(t, filepath.Join(dir, "no.wav"), word(1100, 2), 16000)
	writePCM(t, filepath.Join(dir, "take_03.pcm"), word(600, 3))
	writePCM(t, filepath.Join(dir, "quiet.pcm"), synth.Render(nil, synth.DefaultConfig()))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte("take_03.pcm: yes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	arch, err := archive.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	records, err := NewLoader(WithArchive(arch)).LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	got := map[string]string{}
	for _, r := range records {
		got[r.Source] = r.Label
		if r.ID == "" || r.Frames() == 0 || len(r.Features[0]) != 13 {
			t.Errorf("bad record %+v", r)
		}
	}
	want := map[string]string{"no.wav": "no", "take_03.pcm": "yes", "yes.pcm": "yes"}
	for src, label := range want {
		if got[src] != label {
			t.Errorf("%s labeled %q, want %q", src, got[src], label)
		}
	}

	if _, err := arch.Load(context.Background(), "templates/yes.pcm.1.pcm"); err != nil {
		t.Errorf("segment not archived: %v", err)
	}
}

func TestLoadFileResamples(t *testing.T) {
	dir := t.TempDir()
	cfg := synth.DefaultConfig()
	cfg.SampleRate = 48000
	samples := synth.Render(synth.Word{{Freq: 700, Duration: 400 * time.Millisecond}}, cfg)
	path := filepath.Join(dir, "hi.wav")
	writeWAV(t, path, samples, 48000)

	records, err := NewLoader().LoadFile(context.Background(), path, "hi")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	// 400 ms of speech plus lookback and hangover at a 10 ms stride.
	if n := records[0].Frames(); n < 40 || n > 100 {
		t.Errorf("frames = %d", n)
	}
}

func TestLoadFileErrors(t *testing.T) {
	l := NewLoader()
	if _, err := l.LoadFile(context.Background(), "missing.pcm", "x"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := l.LoadFile(context.Background(), "missing.pcm", "a/b"); !errors.Is(err, ErrInvalidLabel) {
		t.Errorf("err = %v, want ErrInvalidLabel", err)
	}
	if _, err := l.LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing dir")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte("[unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LoadDir(context.Background(), dir); err == nil {
		t.Error("expected manifest parse error")
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	writePCM(t, filepath.Join(dir, "zed.pcm"), word(900, 4))
	writePCM(t, filepath.Join(dir, "alpha.pcm"), word(500, 5))

	s := NewMemoryStore()
	records, err := Import(context.Background(), NewLoader(), s, dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(records) != 2 || records[0].Label != "alpha" || records[1].Label != "zed" {
		t.Fatalf("Import = %v", records)
	}
	lib, err := LoadLibrary(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if lib.Len() != 2 {
		t.Errorf("library has %d templates", lib.Len())
	}
}
