package archive

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidName is returned for empty segment names.
var ErrInvalidName = errors.New("archive: invalid segment name")

func errInvalidName(name string) error {
	return fmt.Errorf("%w: %q", ErrInvalidName, name)
}

func errNotExist(name string) error {
	return fmt.Errorf("archive: load %s: %w", name, os.ErrNotExist)
}
