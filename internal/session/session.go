// Package session ties one virtual tree to one preview builder under a
// single owner with an explicit construction/teardown boundary. All
// mutation enters through Apply, which serializes access and schedules the
// reactive rebuild.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mockingbird/internal/builder"
	"mockingbird/internal/snapshot"
	"mockingbird/internal/vtree"
)

// Session owns one tree and its derived preview state. Derived artifacts
// are never persisted; only the tree's serialized form goes to the store.
type Session struct {
	ID string

	log     *zap.Logger
	store   snapshot.Store
	builder *builder.Builder

	mu     sync.Mutex
	tree   *vtree.Tree
	subs   map[int]func(*builder.Result)
	nextID int
	closed bool
}

// Options configure a session.
type Options struct {
	Entry    string
	Debounce time.Duration
	Log      *zap.Logger
	Store    snapshot.Store // nil disables persistence
}

// New constructs a session around an empty tree.
func New(id string, opts Options) *Session {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	s := &Session{
		ID:    id,
		log:   opts.Log.With(zap.String("session", id)),
		store: opts.Store,
		tree:  vtree.New(),
		subs:  make(map[int]func(*builder.Result)),
	}
	s.builder = builder.New(s.Snapshot, s.fanout, builder.Options{
		Entry:    opts.Entry,
		Debounce: opts.Debounce,
		Log:      s.log,
	})
	return s
}

// Apply runs fn against the tree under the session lock. When fn succeeds a
// rebuild is scheduled; a mutation error leaves the tree untouched and
// never aborts a build already in flight on the prior snapshot.
func (s *Session) Apply(fn func(*vtree.Tree) error) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session %s: closed", s.ID)
	}
	err := fn(s.tree)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.builder.Schedule()
	return nil
}

// View runs fn against the tree read-only under the session lock.
func (s *Session) View(fn func(*vtree.Tree) error) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session %s: closed", s.ID)
	}
	return fn(s.tree)
}

// Snapshot returns the tree's serialized form, safe to use off-lock.
func (s *Session) Snapshot() map[string]vtree.Entry {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Serialize()
}

// Restore replaces the tree with a deserialized snapshot and schedules a
// rebuild.
func (s *Session) Restore(data map[string]vtree.Entry) error {
	if s == nil {
		return fmt.Errorf("session: nil session")
	}
	tree, err := vtree.Deserialize(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session %s: closed", s.ID)
	}
	s.tree = tree
	s.mu.Unlock()
	s.builder.Schedule()
	return nil
}

// Save persists the current serialized tree through the snapshot store.
func (s *Session) Save(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("session: no snapshot store configured")
	}
	return s.store.Save(ctx, s.ID, s.Snapshot())
}

// Load restores the tree persisted under this session's ID.
func (s *Session) Load(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("session: no snapshot store configured")
	}
	data, err := s.store.Load(ctx, s.ID)
	if err != nil {
		return err
	}
	return s.Restore(data)
}

// BuildNow forces a synchronous rebuild and returns its result.
func (s *Session) BuildNow() *builder.Result {
	if s == nil {
		return nil
	}
	return s.builder.BuildNow()
}

// Builder exposes the session's build pipeline.
func (s *Session) Builder() *builder.Builder {
	if s == nil {
		return nil
	}
	return s.builder
}

// Subscribe registers fn for every delivered build result and returns an
// unsubscribe function.
func (s *Session) Subscribe(fn func(*builder.Result)) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) fanout(res *builder.Result) {
	s.mu.Lock()
	fns := make([]func(*builder.Result), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(res)
	}
}

// Close tears the session down: no further mutations or builds, and the
// live build's resources are released.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.subs = map[int]func(*builder.Result){}
	s.mu.Unlock()
	s.builder.Close()
	s.log.Info("session closed")
}
