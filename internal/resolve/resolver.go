// Package resolve maps module specifiers written in source files onto
// virtual tree paths, mirroring conventional bundler resolution so imports
// written without extensions still land on the intended file.
package resolve

import (
	"fmt"
	"strings"

	"mockingbird/internal/vtree"
)

// Extensions are probed in priority order: component extensions before
// plain script extensions.
var Extensions = []string{".jsx", ".tsx", ".js", ".ts"}

// Kind classifies a resolution outcome.
type Kind int

const (
	// KindInTree names a concrete file inside the virtual tree.
	KindInTree Kind = iota
	// KindExternal names a remote package outside the tree.
	KindExternal
)

// Resolved is the outcome of resolving one specifier.
type Resolved struct {
	Kind    Kind
	Path    string // absolute tree path when KindInTree
	Package string // package name as written when KindExternal
}

// Error reports a specifier that matched no tree file. It always carries
// the importing file so a diagnostic can name the offending edge.
type Error struct {
	Importer  string
	Specifier string
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolve: %q imported from %s does not match any file", e.Specifier, e.Importer)
}

// Resolver resolves specifiers against one tree snapshot.
type Resolver struct {
	tree *vtree.Tree
}

// New returns a resolver bound to tree.
func New(tree *vtree.Tree) *Resolver {
	return &Resolver{tree: tree}
}

// Resolve resolves specifier as written in the file at importer.
//
// The alias prefix substitutes the tree root; "./" and "../" resolve
// against the importing file's directory; anything else is external.
// In-tree candidates probe the exact path, then each recognized extension,
// then a directory index file under the same extension rule.
func (r *Resolver) Resolve(importer, specifier string) (Resolved, error) {
	if r == nil || r.tree == nil {
		return Resolved{}, &Error{Importer: importer, Specifier: specifier}
	}
	specifier = strings.TrimSpace(specifier)

	var candidate string
	switch {
	case strings.HasPrefix(specifier, vtree.AliasPrefix):
		candidate = "/" + specifier[len(vtree.AliasPrefix):]
	case strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../"):
		candidate = vtree.Parent(importer) + "/" + specifier
	case strings.HasPrefix(specifier, "/"):
		candidate = specifier
	case specifier == "":
		return Resolved{}, &Error{Importer: importer, Specifier: specifier}
	default:
		return Resolved{Kind: KindExternal, Package: specifier}, nil
	}

	normalized, err := vtree.Normalize(candidate)
	if err != nil {
		return Resolved{}, &Error{Importer: importer, Specifier: specifier}
	}
	if p, ok := r.probe(normalized); ok {
		return Resolved{Kind: KindInTree, Path: p}, nil
	}
	return Resolved{}, &Error{Importer: importer, Specifier: specifier}
}

// probe applies the ordered candidate strategy against one normalized path:
// exact file, then each recognized extension, then a directory index. A
// directory at the exact path never shadows a sibling file that an extension
// candidate would reach.
func (r *Resolver) probe(p string) (string, bool) {
	isDir := false
	if n, ok := r.tree.Lookup(p); ok {
		if n.Kind() == vtree.KindFile {
			return p, true
		}
		isDir = true
	}
	for _, ext := range Extensions {
		if n, ok := r.tree.Lookup(p + ext); ok && n.Kind() == vtree.KindFile {
			return p + ext, true
		}
	}
	if isDir {
		return r.probeIndex(p)
	}
	return "", false
}

func (r *Resolver) probeIndex(dir string) (string, bool) {
	base := dir + "/index"
	if dir == "/" {
		base = "/index"
	}
	if n, ok := r.tree.Lookup(base); ok && n.Kind() == vtree.KindFile {
		return base, true
	}
	for _, ext := range Extensions {
		if n, ok := r.tree.Lookup(base + ext); ok && n.Kind() == vtree.KindFile {
			return base + ext, true
		}
	}
	return "", false
}
