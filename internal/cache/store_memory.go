package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps cache entries in a process-local map. Used in tests
// and single-instance deployments without Redis or Postgres.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]Entry)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[key]; ok {
		return entry, nil
	}
	return Entry{}, ErrNotFound
}

func (s *InMemoryStore) Put(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{
		Key:       key,
		Value:     append([]byte(nil), value...),
		ExpiresAt: expiresAt,
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
