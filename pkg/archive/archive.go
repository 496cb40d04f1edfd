// Package archive keeps the raw audio of recognized utterances.
//
// Segments are stored as little-endian 16-bit mono PCM under a
// forward-slash name such as "s241019_1530_12_345_000003_1a2b3c4d.pcm".
// Backends are the local filesystem and any S3-compatible object store.
// Archiving is a convenience for later inspection and template building;
// recognition never reads it back.
package archive

import (
	"context"
	"path"
	"strings"
)

// Archive stores PCM segments by name. Implementations must be safe for
// concurrent use.
type Archive interface {
	// Save writes samples under name, replacing any existing segment.
	Save(ctx context.Context, name string, samples []int16) error

	// Load reads the segment stored under name. A missing segment yields
	// an error wrapping os.ErrNotExist.
	Load(ctx context.Context, name string) ([]int16, error)

	// Delete removes the named segment. Missing segments are not an error.
	Delete(ctx context.Context, name string) error
}

// Nop is an Archive that keeps nothing.
type Nop struct{}

func (Nop) Save(context.Context, string, []int16) error { return nil }

func (Nop) Load(context.Context, string) ([]int16, error) { return nil, errNotExist("") }

func (Nop) Delete(context.Context, string) error { return nil }

// clean normalizes a segment name and rejects names escaping the root.
func clean(name string) (string, error) {
	p := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", errInvalidName(name)
	}
	return p, nil
}

var (
	_ Archive = Nop{}
	_ Archive = (*Local)(nil)
	_ Archive = (*S3)(nil)
)
