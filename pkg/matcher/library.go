package matcher

import (
	"errors"
	"fmt"
	"slices"

	"github.com/haivivi/dtwasr/pkg/audio/mfcc"
)

// ErrEmptyTemplate is returned when adding a template without features.
var ErrEmptyTemplate = errors.New("matcher: template has no features")

// Template is a labeled reference utterance.
type Template struct {
	ID       string
	Label    string
	Features mfcc.Sequence
}

// Library holds templates in insertion order. A Library is read-only
// during recognition: build it first, then share it freely.
type Library struct {
	templates []Template
	labels    []string
}

// NewLibrary returns a library holding templates.
func NewLibrary(templates ...Template) (*Library, error) {
	lib := &Library{}
	for _, t := range templates {
		if err := lib.Add(t); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Add appends t. It is not safe to call concurrently with Recognize.
func (l *Library) Add(t Template) error {
	if len(t.Features) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrEmptyTemplate, t.Label, t.ID)
	}
	if !slices.Contains(l.labels, t.Label) {
		l.labels = append(l.labels, t.Label)
	}
	l.templates = append(l.templates, t)
	return nil
}

// Len returns the number of templates.
func (l *Library) Len() int {
	return len(l.templates)
}

// Labels returns the distinct labels in first-seen order.
func (l *Library) Labels() []string {
	return slices.Clone(l.labels)
}

// Templates returns the templates in insertion order. The slice is shared;
// do not modify it.
func (l *Library) Templates() []Template {
	return l.templates
}
