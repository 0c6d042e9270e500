package preview

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Resource is one build artifact retained in memory for serving. Today that
// is the assembled document; compiled module bodies travel inside it as
// data URLs rather than as separate resources.
type Resource struct {
	ID          string
	ContentType string
	Body        []byte
}

// HandleSet identifies the resources owned by one build generation. The
// owner releases the whole set when a newer build supersedes it.
type HandleSet struct {
	ids []string
}

// Len returns the number of handles in the set.
func (h *HandleSet) Len() int {
	if h == nil {
		return 0
	}
	return len(h.ids)
}

// ResourceStore retains transient build artifacts. Growth is bounded by the
// builder installing the new generation's handle set before releasing the
// previous one, so at most two generations are ever live.
type ResourceStore struct {
	mu  sync.RWMutex
	res map[string]*Resource
}

// NewResourceStore returns an empty store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{res: make(map[string]*Resource)}
}

// Install registers resources, assigns each an opaque ID, and returns the
// handle set that owns them.
func (s *ResourceStore) Install(resources []*Resource) *HandleSet {
	h := &HandleSet{}
	if s == nil || len(resources) == 0 {
		return h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range resources {
		if r == nil {
			continue
		}
		r.ID = newResourceID()
		s.res[r.ID] = r
		h.ids = append(h.ids, r.ID)
	}
	return h
}

// Release revokes every resource in the set. Releasing nil or an already
// released set is a no-op.
func (s *ResourceStore) Release(h *HandleSet) {
	if s == nil || h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range h.ids {
		delete(s.res, id)
	}
	h.ids = nil
}

// Get returns the resource with the given ID, if still installed.
func (s *ResourceStore) Get(id string) (*Resource, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.res[id]
	return r, ok
}

// Len returns the number of live resources.
func (s *ResourceStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.res)
}

func newResourceID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
