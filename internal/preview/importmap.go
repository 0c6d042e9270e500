package preview

import (
	"errors"
	"strings"

	"mockingbird/internal/resolve"
	"mockingbird/internal/transform"
	"mockingbird/internal/vtree"
)

// DefaultEntry is the conventional application entry point.
const DefaultEntry = "/App.jsx"

// externalBase is the remote resolution scheme for packages outside the
// tree; the sandbox fetches them at load time.
const externalBase = "https://esm.sh/"

// Transformer compiles one source file. preview takes an interface so tests
// can instrument compilation; *transform.Transformer is the production one.
type Transformer interface {
	Compile(path, source string) (*transform.Module, error)
}

// Graph is the result of one dependency walk: every reachable module
// compiled exactly once, externals and styles collected along the way.
type Graph struct {
	Entry    string                       // resolved absolute path of the entry module
	Modules  map[string]*transform.Module // keyed by absolute path
	Order    []string                     // module registration order
	External []string                     // deduplicated external packages, first-seen order
	Styles   []transform.Style            // ordered, deduplicated style resources
}

// Builder walks the dependency graph of one tree snapshot.
type Builder struct {
	tree     *vtree.Tree
	resolver *resolve.Resolver
	tr       Transformer
}

// NewBuilder returns a builder over tree using tr for compilation.
func NewBuilder(tree *vtree.Tree, tr Transformer) *Builder {
	return &Builder{
		tree:     tree,
		resolver: resolve.New(tree),
		tr:       tr,
	}
}

// moduleKey is the canonical bare specifier a module is registered under in
// the import map: its absolute path without the leading separator, which
// the sandbox resolves through the map from any referrer.
func moduleKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

// Build walks the graph from entry. Any unresolved edge or compile failure
// aborts the build with a diagnostic; the tree itself is never touched.
func (b *Builder) Build(entry string) (*Graph, *Diagnostic) {
	if entry == "" {
		entry = DefaultEntry
	}
	res, err := b.resolver.Resolve("/", entry)
	if err != nil || res.Kind != resolve.KindInTree {
		return nil, &Diagnostic{
			Stage:     StageResolve,
			Path:      "/",
			Specifier: entry,
			Message:   "entry module not found",
		}
	}

	w := &walker{
		b: b,
		g: &Graph{
			Entry:   res.Path,
			Modules: make(map[string]*transform.Module),
		},
		visited:   make(map[string]struct{}),
		externals: make(map[string]struct{}),
		styles:    make(map[string]struct{}),
	}
	if d := w.visit(res.Path); d != nil {
		return nil, d
	}
	return w.g, nil
}

type walker struct {
	b         *Builder
	g         *Graph
	visited   map[string]struct{}
	externals map[string]struct{}
	styles    map[string]struct{}
}

// visit compiles the file at path once and follows its resolved imports.
func (w *walker) visit(path string) *Diagnostic {
	if _, done := w.visited[path]; done {
		return nil
	}
	w.visited[path] = struct{}{}

	source, err := w.b.tree.Read(path)
	if err != nil {
		return &Diagnostic{Stage: StageResolve, Path: path, Message: err.Error()}
	}

	m, err := w.b.tr.Compile(path, source)
	if err != nil {
		var pe *transform.ParseError
		if errors.As(err, &pe) {
			return &Diagnostic{
				Stage:   StageCompile,
				Path:    pe.Path,
				Message: pe.Message,
				Line:    pe.Line,
				Column:  pe.Column,
			}
		}
		return &Diagnostic{Stage: StageCompile, Path: path, Message: err.Error()}
	}

	rewrites := make(map[string]string, len(m.Imports))
	for _, spec := range m.Imports {
		res, err := w.b.resolver.Resolve(path, spec)
		if err != nil {
			return &Diagnostic{
				Stage:     StageResolve,
				Path:      path,
				Specifier: spec,
				Message:   err.Error(),
			}
		}
		switch res.Kind {
		case resolve.KindExternal:
			if _, dup := w.externals[res.Package]; !dup {
				w.externals[res.Package] = struct{}{}
				w.g.External = append(w.g.External, res.Package)
			}
		case resolve.KindInTree:
			if transform.IsStyle(res.Path) {
				if d := w.collectStyle(res.Path); d != nil {
					return d
				}
				// Style imports vanish from the module body; injection is a
				// document-level side effect.
				rewrites[spec] = "data:text/javascript," // empty module
				continue
			}
			if d := w.visit(res.Path); d != nil {
				return d
			}
			rewrites[spec] = moduleKey(res.Path)
		}
	}

	registered := &transform.Module{
		Path:    m.Path,
		Code:    transform.RewriteImports(m.Code, rewrites),
		Imports: m.Imports,
	}
	w.g.Modules[path] = registered
	w.g.Order = append(w.g.Order, path)
	return nil
}

func (w *walker) collectStyle(path string) *Diagnostic {
	if _, dup := w.styles[path]; dup {
		return nil
	}
	w.styles[path] = struct{}{}
	css, err := w.b.tree.Read(path)
	if err != nil {
		return &Diagnostic{Stage: StageResolve, Path: path, Message: err.Error()}
	}
	w.g.Styles = append(w.g.Styles, transform.Style{Path: path, CSS: css})
	return nil
}
