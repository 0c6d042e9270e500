package snapshot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mockingbird/internal/vtree"
)

// MemoryStore keeps snapshots in process memory, mainly for tests and
// local development.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]vtree.Entry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]vtree.Entry)}
}

func (s *MemoryStore) Save(_ context.Context, id string, data map[string]vtree.Entry) error {
	if s == nil {
		return fmt.Errorf("snapshot: store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("snapshot: id is required")
	}
	cp := make(map[string]vtree.Entry, len(data))
	for k, v := range data {
		cp[k] = v
	}
	s.mu.Lock()
	s.data[id] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (map[string]vtree.Entry, error) {
	if s == nil {
		return nil, fmt.Errorf("snapshot: store is nil")
	}
	s.mu.RLock()
	stored, ok := s.data[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := make(map[string]vtree.Entry, len(stored))
	for k, v := range stored {
		cp[k] = v
	}
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("snapshot: store is nil")
	}
	s.mu.Lock()
	delete(s.data, strings.TrimSpace(id))
	s.mu.Unlock()
	return nil
}
