package vtree

import (
	"fmt"
	"iter"
)

// Tree owns one root directory plus a path index kept consistent with the
// hierarchy on every mutation. Mutations are atomic: on error the tree and
// index are unchanged. A Tree is not safe for concurrent use; the owning
// session serializes access.
type Tree struct {
	root  *Dir
	index map[string]Node
}

// New returns an empty tree containing only the root directory.
func New() *Tree {
	root := NewDir()
	return &Tree{
		root:  root,
		index: map[string]Node{"/": root},
	}
}

// Root returns the fixed root directory.
func (t *Tree) Root() *Dir {
	if t == nil {
		return nil
	}
	return t.root
}

// Len returns the number of nodes in the tree, root included.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Lookup returns the node at p, if any. The path may use the alias prefix.
func (t *Tree) Lookup(p string) (Node, bool) {
	if t == nil {
		return nil, false
	}
	np, err := Normalize(p)
	if err != nil {
		return nil, false
	}
	n, ok := t.index[np]
	return n, ok
}

// Create adds a file at p. The parent directory must already exist.
func (t *Tree) Create(p, content string) error {
	np, err := Normalize(p)
	if err != nil {
		return err
	}
	if _, exists := t.index[np]; exists {
		return fmt.Errorf("%w: %s", ErrPathConflict, np)
	}
	parent, name := Parent(np), Base(np)
	d, err := t.dirAt(parent)
	if err != nil {
		return err
	}
	f := &File{Content: content}
	d.put(name, f)
	t.index[np] = f
	return nil
}

// CreateAll adds a file at p, creating intermediate directories as needed.
func (t *Tree) CreateAll(p, content string) error {
	np, err := Normalize(p)
	if err != nil {
		return err
	}
	if _, exists := t.index[np]; exists {
		return fmt.Errorf("%w: %s", ErrPathConflict, np)
	}
	if _, err := t.ensureDir(Parent(np)); err != nil {
		return err
	}
	return t.Create(np, content)
}

// Mkdir adds an empty directory at p, creating intermediate directories as
// needed. An existing directory at p is not an error.
func (t *Tree) Mkdir(p string) error {
	np, err := Normalize(p)
	if err != nil {
		return err
	}
	_, err = t.ensureDir(np)
	return err
}

// Read returns the content of the file at p.
func (t *Tree) Read(p string) (string, error) {
	np, err := Normalize(p)
	if err != nil {
		return "", err
	}
	n, ok := t.index[np]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, np)
	}
	f, ok := n.(*File)
	if !ok {
		return "", fmt.Errorf("%w: %s is a directory", ErrTypeMismatch, np)
	}
	return f.Content, nil
}

// Update replaces the content of the existing file at p.
func (t *Tree) Update(p, content string) error {
	np, err := Normalize(p)
	if err != nil {
		return err
	}
	n, ok := t.index[np]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, np)
	}
	f, ok := n.(*File)
	if !ok {
		return fmt.Errorf("%w: %s is a directory", ErrTypeMismatch, np)
	}
	f.Content = content
	return nil
}

// Delete removes the node at p and, for a directory, every descendant.
func (t *Tree) Delete(p string) error {
	np, err := Normalize(p)
	if err != nil {
		return err
	}
	if np == "/" {
		return fmt.Errorf("%w: cannot delete the root", ErrInvariantViolation)
	}
	n, ok := t.index[np]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, np)
	}
	parent, name := Parent(np), Base(np)
	d, ok := t.index[parent].(*Dir)
	if !ok {
		return fmt.Errorf("%w: parent of %s is not a directory", ErrInvariantViolation, np)
	}
	d.remove(name)
	t.dropFromIndex(np, n)
	return nil
}

// Rename moves the node at oldPath to newPath. Because node paths are
// derived rather than stored, renaming a directory rewrites the index entry
// of every descendant.
func (t *Tree) Rename(oldPath, newPath string) error {
	op, err := Normalize(oldPath)
	if err != nil {
		return err
	}
	np, err := Normalize(newPath)
	if err != nil {
		return err
	}
	if op == "/" {
		return fmt.Errorf("%w: cannot rename the root", ErrInvariantViolation)
	}
	if np == "/" || np == op {
		return fmt.Errorf("%w: %s", ErrPathConflict, np)
	}
	if isDescendant(np, op) {
		return fmt.Errorf("%w: %s is inside %s", ErrInvariantViolation, np, op)
	}
	n, ok := t.index[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	if _, exists := t.index[np]; exists {
		return fmt.Errorf("%w: %s", ErrPathConflict, np)
	}
	dst, err := t.dirAt(Parent(np))
	if err != nil {
		return err
	}
	src, ok := t.index[Parent(op)].(*Dir)
	if !ok {
		return fmt.Errorf("%w: parent of %s is not a directory", ErrInvariantViolation, op)
	}
	src.remove(Base(op))
	t.dropFromIndex(op, n)
	dst.put(Base(np), n)
	t.addToIndex(np, n)
	return nil
}

// List yields (path, node) pairs in depth-first order, directories before
// their children and siblings in insertion order, starting at the root. The
// sequence is restartable: each range starts a fresh walk.
func (t *Tree) List() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		if t == nil {
			return
		}
		walk(t.root, "/", yield)
	}
}

func walk(d *Dir, p string, yield func(string, Node) bool) bool {
	if !yield(p, Node(d)) {
		return false
	}
	for _, name := range d.names {
		child := d.children[name]
		cp := join(p, name)
		if sub, ok := child.(*Dir); ok {
			if !walk(sub, cp, yield) {
				return false
			}
			continue
		}
		if !yield(cp, child) {
			return false
		}
	}
	return true
}

func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// dirAt returns the directory node at the normalized path p.
func (t *Tree) dirAt(p string) (*Dir, error) {
	n, ok := t.index[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParent, p)
	}
	d, ok := n.(*Dir)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrTypeMismatch, p)
	}
	return d, nil
}

// ensureDir creates the directory chain down to the normalized path p.
func (t *Tree) ensureDir(p string) (*Dir, error) {
	if n, ok := t.index[p]; ok {
		d, ok := n.(*Dir)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrTypeMismatch, p)
		}
		return d, nil
	}
	parent, err := t.ensureDir(Parent(p))
	if err != nil {
		return nil, err
	}
	d := NewDir()
	parent.put(Base(p), d)
	t.index[p] = d
	return d, nil
}

// dropFromIndex removes p and, for directories, every descendant entry.
func (t *Tree) dropFromIndex(p string, n Node) {
	delete(t.index, p)
	if d, ok := n.(*Dir); ok {
		for _, name := range d.names {
			t.dropFromIndex(join(p, name), d.children[name])
		}
	}
}

// addToIndex registers p and, for directories, every descendant entry.
func (t *Tree) addToIndex(p string, n Node) {
	t.index[p] = n
	if d, ok := n.(*Dir); ok {
		for _, name := range d.names {
			t.addToIndex(join(p, name), d.children[name])
		}
	}
}
