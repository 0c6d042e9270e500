package session

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mockingbird/internal/snapshot"
)

// Manager tracks active sessions by ID. It is thread-safe.
type Manager struct {
	log      *zap.Logger
	store    snapshot.Store
	defaults Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a manager whose sessions share the given defaults.
func NewManager(log *zap.Logger, store snapshot.Store, defaults Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:      log,
		store:    store,
		defaults: defaults,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session with the given ID, creating it if needed.
func (m *Manager) Open(id string) (*Session, error) {
	if m == nil {
		return nil, fmt.Errorf("session: manager is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("session: id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	opts := m.defaults
	opts.Log = m.log
	opts.Store = m.store
	s := New(id, opts)
	m.sessions[id] = s
	return s, nil
}

// Get returns an existing session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[strings.TrimSpace(id)]
	return s, ok
}

// Close tears down and forgets the session with the given ID.
func (m *Manager) Close(id string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	s, ok := m.sessions[strings.TrimSpace(id)]
	delete(m.sessions, strings.TrimSpace(id))
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll tears down every session, for server shutdown.
func (m *Manager) CloseAll() {
	if m == nil {
		return
	}
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
