package product

import (
	"context"
	"sort"
	"sync"
)

type recordKey struct {
	scope string
	name  string
}

// MemoryStore keeps records in a map. Used in tests and single-process setups
// without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record)}
}

func (s *MemoryStore) InsertIfAbsent(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{scope: r.Scope, name: r.Name}
	if _, exists := s.records[key]; exists {
		return ErrConflict
	}
	s.records[key] = r
	return nil
}

func (s *MemoryStore) ListByScope(ctx context.Context, scope string) ([]Record, error) {
	s.mu.RLock()
	var out []Record
	for key, r := range s.records {
		if key.scope == scope {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteByName(ctx context.Context, scope, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{scope: scope, name: name}
	if _, exists := s.records[key]; !exists {
		return ErrNotFound
	}
	delete(s.records, key)
	return nil
}
