// Package vtree implements the session-scoped in-memory file hierarchy
// the AI tool layer mutates and the preview pipeline compiles. Nodes never
// store their own path; a path is derived from the node's position under
// the fixed root directory.
package vtree

// Kind discriminates file nodes from directory nodes.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "directory"
)

// Node is either a *File or a *Dir.
type Node interface {
	Kind() Kind
}

// File is a leaf node holding source text.
type File struct {
	Content string
}

// Kind implements Node.
func (*File) Kind() Kind { return KindFile }

// Dir holds named children in insertion order.
type Dir struct {
	names    []string
	children map[string]Node
}

// NewDir returns an empty directory node.
func NewDir() *Dir {
	return &Dir{children: make(map[string]Node)}
}

// Kind implements Node.
func (*Dir) Kind() Kind { return KindDir }

// Child returns the child named name, if present.
func (d *Dir) Child(name string) (Node, bool) {
	if d == nil {
		return nil, false
	}
	n, ok := d.children[name]
	return n, ok
}

// Names returns the child names in insertion order.
func (d *Dir) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of direct children.
func (d *Dir) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}

func (d *Dir) put(name string, n Node) {
	if d.children == nil {
		d.children = make(map[string]Node)
	}
	if _, exists := d.children[name]; !exists {
		d.names = append(d.names, name)
	}
	d.children[name] = n
}

func (d *Dir) remove(name string) {
	if _, exists := d.children[name]; !exists {
		return
	}
	delete(d.children, name)
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			return
		}
	}
}
