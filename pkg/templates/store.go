// Package templates builds and persists the template library.
//
// A Loader turns a directory of labeled recordings into Records by running
// each file through the same segmentation and MFCC path used for queries.
// A Store persists Records; BadgerStore keeps them on disk and MemoryStore
// keeps them in process. LoadLibrary reads a Store into a matcher.Library.
//
// Key layout:
//
//	tpl/{label}/{id}  → msgpack-encoded Record
//
// Keys sort by label, so all templates of one label are contiguous.
package templates

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
	"github.com/haivivi/dtwasr/pkg/matcher"
)

// ErrInvalidLabel is returned for labels that cannot be stored.
var ErrInvalidLabel = errors.New("templates: invalid label")

const keyPrefix = "tpl/"

// Record is a stored template.
type Record struct {
	ID        string        `msgpack:"id" json:"id" yaml:"id"`
	Label     string        `msgpack:"label" json:"label" yaml:"label"`
	Source    string        `msgpack:"source,omitempty" json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt time.Time     `msgpack:"created_at" json:"created_at" yaml:"created_at"`
	Features  mfcc.Sequence `msgpack:"features" json:"-" yaml:"-"`
}

// Template converts r for the matcher.
func (r Record) Template() matcher.Template {
	return matcher.Template{ID: r.ID, Label: r.Label, Features: r.Features}
}

// Frames returns the number of feature vectors.
func (r Record) Frames() int {
	return len(r.Features)
}

// Store persists template records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put stores records, replacing any with the same label and ID.
	Put(ctx context.Context, records ...Record) error

	// List iterates over records whose label equals label, or over all
	// records when label is empty. Records come in key order.
	List(ctx context.Context, label string) iter.Seq2[Record, error]

	// DeleteLabel removes every record of label and returns the count.
	DeleteLabel(ctx context.Context, label string) (int, error)

	// Close releases the store.
	Close() error
}

// ValidateLabel reports whether label can be used as a key segment.
func ValidateLabel(label string) error {
	if label == "" || strings.ContainsAny(label, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

func recordKey(label, id string) []byte {
	return []byte(keyPrefix + label + "/" + id)
}

func labelPrefix(label string) []byte {
	if label == "" {
		return []byte(keyPrefix)
	}
	return []byte(keyPrefix + label + "/")
}

func encodeRecord(r Record) ([]byte, error) {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("templates: encode %s/%s: %w", r.Label, r.ID, err)
	}
	return b, nil
}

func decodeRecord(key, b []byte) (Record, error) {
	var r Record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("templates: decode %s: %w", key, err)
	}
	return r, nil
}

func checkRecords(records []Record) error {
	for _, r := range records {
		if err := ValidateLabel(r.Label); err != nil {
			return err
		}
		if r.ID == "" || strings.Contains(r.ID, "/") {
			return fmt.Errorf("templates: invalid id %q for label %q", r.ID, r.Label)
		}
	}
	return nil
}

// LoadLibrary reads every record of s into a new matcher.Library.
func LoadLibrary(ctx context.Context, s Store) (*matcher.Library, error) {
	lib, _ := matcher.NewLibrary()
	for r, err := range s.List(ctx, "") {
		if err != nil {
			return nil, err
		}
		if err := lib.Add(r.Template()); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Labels returns the distinct labels in s with their template counts, in
// key order.
func Labels(ctx context.Context, s Store) ([]LabelCount, error) {
	var out []LabelCount
	for r, err := range s.List(ctx, "") {
		if err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].Label == r.Label {
			out[n-1].Count++
			continue
		}
		out = append(out, LabelCount{Label: r.Label, Count: 1})
	}
	return out, nil
}

// LabelCount pairs a label with its number of templates.
type LabelCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}
