package templates

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, records ...Record) error {
	if err := checkRecords(records); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[string(recordKey(r.Label, r.ID))] = r
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, label string) iter.Seq2[Record, error] {
	prefix := string(labelPrefix(label))
	m.mu.RLock()
	var keys []string
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := make([]Record, len(keys))
	for i, k := range keys {
		out[i] = m.records[k]
	}
	m.mu.RUnlock()

	return func(yield func(Record, error) bool) {
		for _, r := range out {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) DeleteLabel(_ context.Context, label string) (int, error) {
	if err := ValidateLabel(label); err != nil {
		return 0, err
	}
	prefix := string(labelPrefix(label))
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
