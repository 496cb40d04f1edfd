package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/haivivi/dtwasr/pkg/archive"
	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
	"github.com/haivivi/dtwasr/pkg/audio/pcm"
	"github.com/haivivi/dtwasr/pkg/segment"
	"github.com/haivivi/dtwasr/pkg/vad"
)

// ManifestFile is the optional per-directory file mapping recording file
// names to labels, for names that do not spell their label.
//
//	hello_01.wav: hello
//	hello_02.wav: hello
const ManifestFile = "labels.yaml"

// Loader builds template records from labeled recordings.
type Loader struct {
	mfcc    mfcc.Config
	seg     segment.Config
	vadOpts []vad.Option
	archive archive.Archive
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithExtractor sets the MFCC configuration. Its Stride is the template
// stride.
func WithExtractor(cfg mfcc.Config) LoaderOption {
	return func(l *Loader) {
		l.mfcc = cfg
	}
}

// WithSegmentation sets the segmentation configuration.
func WithSegmentation(cfg segment.Config) LoaderOption {
	return func(l *Loader) {
		l.seg = cfg
	}
}

// WithVAD sets options for the voice activity detector created per file.
func WithVAD(opts ...vad.Option) LoaderOption {
	return func(l *Loader) {
		l.vadOpts = opts
	}
}

// WithArchive stores every template segment's audio under
// "templates/{file}.{n}.pcm".
func WithArchive(a archive.Archive) LoaderOption {
	return func(l *Loader) {
		if a != nil {
			l.archive = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		mfcc:    mfcc.DefaultConfig(),
		seg:     segment.DefaultConfig(),
		archive: archive.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRecording reports whether name has a recording extension (.pcm, .wav).
func IsRecording(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pcm", ".wav":
		return true
	}
	return false
}

// LabelFromName returns the file name up to its first dot.
func LabelFromName(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// LoadDir loads every recording directly inside dir. Files are visited in
// name order. A file that yields no utterance is skipped with a warning.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("templates: read dir: %w", err)
	}
	manifest, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, e := range entries {
		if e.IsDir() || !IsRecording(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label, ok := manifest[e.Name()]
		if !ok {
			label = LabelFromName(e.Name())
		}
		records, err := l.LoadFile(ctx, filepath.Join(dir, e.Name()), label)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			l.logger.Warn("no utterance found", "file", e.Name(), "label", label)
			continue
		}
		out = append(out, records...)
	}
	return out, nil
}

// LoadFile loads one recording. Every utterance found becomes one record
// labeled label.
func (l *Loader) LoadFile(ctx context.Context, path, label string) ([]Record, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}
	samples, err := pcm.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("templates: load %s: %w", path, err)
	}
	name := filepath.Base(path)

	seg := segment.New(l.seg, vad.New(l.vadOpts...))
	var segs []*segment.Segment
	for _, f := range pcm.Split(samples, pcm.L16Mono16K.FrameSize(pcm.FrameDuration)) {
		if s := seg.Push(f); s != nil {
			segs = append(segs, s)
		}
	}
	if s := seg.Flush(); s != nil {
		segs = append(segs, s)
	}

	var out []Record
	for _, s := range segs {
		audio := s.Samples()
		if err := l.archive.Save(ctx, fmt.Sprintf("templates/%s.%d.pcm", name, s.Index+1), audio); err != nil {
			l.logger.Warn("archive template segment", "file", name, "error", err)
		}
		features, err := mfcc.ExtractSamples(l.mfcc, audio)
		if err != nil {
			return nil, fmt.Errorf("templates: %s segment %d: %w", name, s.Index+1, err)
		}
		if len(features) == 0 {
			continue
		}
		out = append(out, Record{
			ID:        uuid.NewString(),
			Label:     label,
			Source:    name,
			CreatedAt: time.Now().UTC(),
			Features:  features,
		})
		l.logger.Debug("template", "file", name, "label", label, "frames", len(features), "start", s.Start)
	}
	return out, nil
}

func readManifest(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("templates: read manifest: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", ManifestFile, err)
	}
	return m, nil
}

// Import loads dir and stores every record in s. It returns the records
// stored, sorted by label.
func Import(ctx context.Context, l *Loader, s Store, dir string) ([]Record, error) {
	records, err := l.LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, records...); err != nil {
		return nil, err
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		return strings.Compare(a.Label, b.Label)
	})
	return records, nil
}
