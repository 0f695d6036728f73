package interaction

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local Store backed by a mutex-guarded map.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (ms *MemoryStore) Put(ctx context.Context, s Session) error {
	if err := s.validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.sessions[s.ID]; exists {
		return ErrDuplicateID
	}
	ms.sessions[s.ID] = s.clone()
	return nil
}

func (ms *MemoryStore) Peek(ctx context.Context, id string) (Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s.clone(), nil
}

func (ms *MemoryStore) ClaimAndRemove(ctx context.Context, id string) (Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	delete(ms.sessions, id)
	return s, nil
}

func (ms *MemoryStore) ClaimExpired(ctx context.Context, id string, now time.Time) (Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.IsLive(now) {
		return Session{}, ErrNotExpired
	}
	delete(ms.sessions, id)
	return s, nil
}

func (ms *MemoryStore) Expired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	ms.mu.Lock()
	type entry struct {
		id       string
		deadline time.Time
	}
	var due []entry
	for id, s := range ms.sessions {
		if !s.IsLive(now) {
			due = append(due, entry{id: id, deadline: s.Deadline})
		}
	}
	ms.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]string, len(due))
	for i, e := range due {
		ids[i] = e.id
	}
	return ids, nil
}

// Len returns the number of stored sessions.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.sessions)
}
