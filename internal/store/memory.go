package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps records in a process-local map. Records never expire.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]string),
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, &LookupError{Backend: "memory", Err: fmt.Errorf("context error: %w", err)}
	}

	s.mu.RLock()
	value, ok := s.items[key]
	s.mu.RUnlock()

	return value, ok, nil
}

// Put stores value under key, replacing any previous value.
func (s *MemoryStore) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Backend: "memory", Err: fmt.Errorf("context error: %w", err)}
	}

	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()

	return nil
}

// Len returns the number of records currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear removes all records. Useful for tests or manual resets.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.items = make(map[string]string)
	s.mu.Unlock()
}
