// Package transform compiles one virtual source file at a time into an
// ES module body the sandboxed preview can load directly, without a
// separate bundling stage.
package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"
	lru "github.com/hashicorp/golang-lru/v2"

	"mockingbird/internal/vtree"
)

// Module is the successful output of compiling one file.
type Module struct {
	Path    string   // absolute tree path
	Code    string   // compiled ES module body
	Imports []string // static specifiers in source order, deduplicated
}

// Style is a stylesheet passed through untransformed for side-effect
// injection; it never joins the module graph.
type Style struct {
	Path string
	CSS  string
}

// ParseError reports a syntax failure with its location in the source.
// It is the only failure shape Compile lets past the esbuild boundary.
type ParseError struct {
	Path    string
	Line    int // 1-based, 0 when unknown
	Column  int // 0-based
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("transform: %s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("transform: %s: %s", e.Path, e.Message)
}

const defaultCacheSize = 512

// Transformer compiles source files, caching results by path and content
// hash so unchanged files cost nothing across rebuilds.
type Transformer struct {
	cache    *lru.Cache[string, *Module]
	compiles atomic.Int64
}

// New returns a transformer with the default cache size.
func New() *Transformer {
	return NewWithCacheSize(defaultCacheSize)
}

// NewWithCacheSize returns a transformer whose result cache holds up to
// size entries. A size below 1 disables caching.
func NewWithCacheSize(size int) *Transformer {
	t := &Transformer{}
	if size > 0 {
		if c, err := lru.New[string, *Module](size); err == nil {
			t.cache = c
		}
	}
	return t
}

// CompileCount returns the number of esbuild invocations so far; cache hits
// do not count.
func (t *Transformer) CompileCount() int64 {
	if t == nil {
		return 0
	}
	return t.compiles.Load()
}

// IsStyle reports whether path names a style resource rather than a module.
func IsStyle(path string) bool {
	return vtree.Ext(path) == ".css"
}

// Compile transforms the source at path into an ES module body and collects
// its static import specifiers. Markup-bearing files (.jsx/.tsx) get the
// full structural transform; plain scripts only get syntax lowering.
func (t *Transformer) Compile(path, source string) (*Module, error) {
	if IsStyle(path) {
		return nil, &ParseError{Path: path, Message: "style files are not executable modules"}
	}
	key := cacheKey(path, source)
	if t != nil && t.cache != nil {
		if m, ok := t.cache.Get(key); ok {
			return m, nil
		}
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:      loaderFor(path),
		Format:      api.FormatESModule,
		Target:      api.ES2020,
		Sourcefile:  path,
		JSX:         api.JSXTransform,
		JSXFactory:  "React.createElement",
		JSXFragment: "React.Fragment",
	})
	if t != nil {
		t.compiles.Add(1)
	}
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		pe := &ParseError{Path: path, Message: msg.Text}
		if msg.Location != nil {
			pe.Line = msg.Location.Line
			pe.Column = msg.Location.Column
		}
		return nil, pe
	}

	code := string(result.Code)
	m := &Module{
		Path:    path,
		Code:    code,
		Imports: ScanImports(code),
	}
	if t != nil && t.cache != nil {
		t.cache.Add(key, m)
	}
	return m, nil
}

func cacheKey(path, source string) string {
	sum := sha256.Sum256([]byte(source))
	return path + "\x00" + hex.EncodeToString(sum[:])
}

func loaderFor(path string) api.Loader {
	switch strings.ToLower(vtree.Ext(path)) {
	case ".jsx":
		return api.LoaderJSX
	case ".tsx":
		return api.LoaderTSX
	case ".ts":
		return api.LoaderTS
	default:
		return api.LoaderJS
	}
}
