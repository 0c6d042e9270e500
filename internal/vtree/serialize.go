package vtree

import (
	"fmt"
	"sort"
)

// Entry is the persisted form of one node in the flat serialized tree.
// The root directory is implicit and never serialized.
type Entry struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content,omitempty"`
}

// Serialize flattens the tree into a mapping from normalized absolute path
// to entry. Deserialize(Serialize(t)) reconstructs a structurally equal tree.
func (t *Tree) Serialize() map[string]Entry {
	out := make(map[string]Entry)
	if t == nil {
		return out
	}
	for p, n := range t.List() {
		if p == "/" {
			continue
		}
		switch node := n.(type) {
		case *File:
			out[p] = Entry{Kind: KindFile, Content: node.Content}
		case *Dir:
			out[p] = Entry{Kind: KindDir}
		}
	}
	return out
}

// Deserialize rebuilds a tree from its flat serialized form. Directories
// implied by file paths are reconstructed even when the payload carries no
// explicit entry for them. A path with no root-relative normalized form, or
// a payload naming the same path as both file and directory, is rejected.
func Deserialize(data map[string]Entry) (*Tree, error) {
	t := New()
	paths := make([]string, 0, len(data))
	byPath := make(map[string]Entry, len(data))
	for raw, e := range data {
		p, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("vtree: deserialize %q: %w", raw, err)
		}
		if p == "/" {
			if e.Kind != KindDir {
				return nil, fmt.Errorf("%w: root must be a directory", ErrTypeMismatch)
			}
			continue
		}
		if prev, dup := byPath[p]; dup && prev != e {
			return nil, fmt.Errorf("%w: conflicting entries for %s", ErrPathConflict, p)
		}
		if _, dup := byPath[p]; !dup {
			paths = append(paths, p)
		}
		byPath[p] = e
	}
	// Lexicographic order visits parents before children, so every explicit
	// directory entry lands before anything beneath it.
	sort.Strings(paths)
	for _, p := range paths {
		e := byPath[p]
		switch e.Kind {
		case KindDir:
			if err := t.Mkdir(p); err != nil {
				return nil, err
			}
		case KindFile:
			if err := t.CreateAll(p, e.Content); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s has unknown kind %q", ErrTypeMismatch, p, e.Kind)
		}
	}
	return t, nil
}

// Equal reports whether two trees serialize to the same flat form.
func Equal(a, b *Tree) bool {
	as, bs := a.Serialize(), b.Serialize()
	if len(as) != len(bs) {
		return false
	}
	for p, ae := range as {
		be, ok := bs[p]
		if !ok || ae != be {
			return false
		}
	}
	return true
}
