// Package builder drives the preview pipeline reactively: tree mutations
// schedule a rebuild, rapid mutations coalesce into one, and only the most
// recent generation's result is ever delivered.
package builder

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mockingbird/internal/preview"
	"mockingbird/internal/transform"
	"mockingbird/internal/vtree"
)

// State tracks one build through the pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateCompiling  State = "compiling"
	StateAssembling State = "assembling"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// DefaultDebounce is how long the builder waits after the last mutation
// before rebuilding; the cost of a build is proportional to the reachable
// module graph, not to the size of the edit.
const DefaultDebounce = 150 * time.Millisecond

// Result is the outcome of one build generation.
type Result struct {
	Generation uint64              `json:"generation"`
	State      State               `json:"state"` // StateReady or StateFailed
	Payload    *preview.Payload    `json:"payload,omitempty"`
	Diagnostic *preview.Diagnostic `json:"diagnostic,omitempty"`
	Elapsed    time.Duration       `json:"elapsed"`
	// DocumentID addresses the assembled document in the resource store
	// for as long as this generation is the live one.
	DocumentID string `json:"documentId,omitempty"`
}

// SnapshotFunc hands the builder a consistent serialized copy of the tree.
// The builder rebuilds a private tree from it, so the owner is free to keep
// mutating while a build runs.
type SnapshotFunc func() map[string]vtree.Entry

// NotifyFunc receives each delivered (non-superseded) result.
type NotifyFunc func(*Result)

// Builder coalesces change notifications into single-flight rebuilds of the
// latest snapshot.
type Builder struct {
	log      *zap.Logger
	snapshot SnapshotFunc
	notify   NotifyFunc
	entry    string
	debounce time.Duration

	tf    *transform.Transformer
	store *preview.ResourceStore

	mu       sync.Mutex
	idle     sync.Cond // signalled when an in-flight build finishes
	timer    *time.Timer
	building bool
	pending  bool
	gen      uint64 // latest requested generation
	state    State
	current  *Result
	handles  *preview.HandleSet // resources of the displayed build
	closed   bool
}

// Options configure a Builder.
type Options struct {
	Entry    string        // entry specifier, DefaultEntry when empty
	Debounce time.Duration // coalescing window, DefaultDebounce when zero
	Log      *zap.Logger
	Store    *preview.ResourceStore // shared resource store, one is created when nil
}

// New returns a builder that snapshots via snapshot and delivers via notify.
func New(snapshot SnapshotFunc, notify NotifyFunc, opts Options) *Builder {
	if opts.Entry == "" {
		opts.Entry = preview.DefaultEntry
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = preview.NewResourceStore()
	}
	b := &Builder{
		log:      opts.Log,
		snapshot: snapshot,
		notify:   notify,
		entry:    opts.Entry,
		debounce: opts.Debounce,
		tf:       transform.New(),
		store:    opts.Store,
		state:    StateIdle,
	}
	b.idle.L = &b.mu
	return b
}

// Store exposes the resource store holding the live build's artifacts.
func (b *Builder) Store() *preview.ResourceStore {
	if b == nil {
		return nil
	}
	return b.store
}

// State returns the current pipeline state.
func (b *Builder) State() State {
	if b == nil {
		return StateIdle
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Current returns the most recently delivered result, if any.
func (b *Builder) Current() *Result {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Schedule notes a tree change and arms the debounce window. Successive
// calls inside the window coalesce into a single rebuild of the latest
// snapshot.
func (b *Builder) Schedule() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.gen++
	// A fresh mutation always restarts the machine from Idle.
	if !b.building {
		b.state = StateIdle
	}
	if b.building {
		b.pending = true
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.run)
}

// BuildNow builds synchronously, bypassing the debounce window, and returns
// the delivered result. Used by the manual build trigger and tests.
func (b *Builder) BuildNow() *Result {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	for b.building {
		// Wait out the in-flight build; it becomes superseded by this
		// generation and will be discarded.
		b.idle.Wait()
	}
	b.building = true
	gen := b.gen
	b.mu.Unlock()

	res := b.execute(gen)
	b.finish(res)
	return b.Current()
}

// Close stops future builds and releases the live build's resources.
func (b *Builder) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	handles := b.handles
	b.handles = nil
	b.mu.Unlock()
	b.store.Release(handles)
}

// run fires when the debounce window elapses.
func (b *Builder) run() {
	b.mu.Lock()
	if b.closed || b.building {
		b.pending = b.pending || !b.closed
		b.mu.Unlock()
		return
	}
	b.building = true
	gen := b.gen
	b.mu.Unlock()

	res := b.execute(gen)
	b.finish(res)
}

// execute runs one full pipeline pass against a private snapshot copy.
func (b *Builder) execute(gen uint64) *Result {
	start := time.Now()

	b.setState(StateResolving)
	tree, err := vtree.Deserialize(b.snapshot())
	if err != nil {
		return &Result{
			Generation: gen,
			State:      StateFailed,
			Diagnostic: &preview.Diagnostic{Stage: preview.StageResolve, Message: err.Error()},
			Elapsed:    time.Since(start),
		}
	}

	b.setState(StateCompiling)
	graph, diag := preview.NewBuilder(tree, b.tf).Build(b.entry)
	if diag != nil {
		return &Result{Generation: gen, State: StateFailed, Diagnostic: diag, Elapsed: time.Since(start)}
	}

	b.setState(StateAssembling)
	payload, diag := preview.Assemble(graph)
	if diag != nil {
		return &Result{Generation: gen, State: StateFailed, Diagnostic: diag, Elapsed: time.Since(start)}
	}

	return &Result{Generation: gen, State: StateReady, Payload: payload, Elapsed: time.Since(start)}
}

// finish installs or discards the result depending on whether it was
// superseded while in flight, then reruns if more mutations arrived.
func (b *Builder) finish(res *Result) {
	var release *preview.HandleSet
	deliver := false

	b.mu.Lock()
	superseded := res.Generation != b.gen || b.closed
	if !superseded {
		if res.State == StateReady {
			doc := &preview.Resource{
				ContentType: "text/html; charset=utf-8",
				Body:        []byte(res.Payload.Document),
			}
			handles := b.store.Install([]*preview.Resource{doc})
			res.DocumentID = doc.ID
			release = b.handles
			b.handles = handles
		}
		b.state = res.State
		b.current = res
		deliver = true
	}
	b.building = false
	rerun := b.pending && !b.closed
	b.pending = false
	if rerun {
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(b.debounce, b.run)
	}
	b.idle.Broadcast()
	b.mu.Unlock()

	// Old handles go away only after the new generation is installed.
	b.store.Release(release)

	if superseded {
		b.log.Debug("discarding superseded build",
			zap.Uint64("generation", res.Generation))
		return
	}
	if res.State == StateFailed {
		b.log.Info("preview build failed",
			zap.Uint64("generation", res.Generation),
			zap.String("stage", string(res.Diagnostic.Stage)),
			zap.String("path", res.Diagnostic.Path),
			zap.Duration("elapsed", res.Elapsed))
	} else {
		b.log.Info("preview build ready",
			zap.Uint64("generation", res.Generation),
			zap.Int("modules", len(res.Payload.ImportMap)),
			zap.Duration("elapsed", res.Elapsed))
	}
	if deliver && b.notify != nil {
		b.notify(res)
	}
}

func (b *Builder) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}
