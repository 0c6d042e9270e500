package preview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mockingbird/internal/transform"
	"mockingbird/internal/vtree"
)

func buildTree(t *testing.T, files map[string]string) *vtree.Tree {
	t.Helper()
	tr := vtree.New()
	for p, c := range files {
		require.NoError(t, tr.CreateAll(p, c), "fixture %s", p)
	}
	return tr
}

func TestBuildResolvesAliasAndCollectsModules(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `import Button from "@/components/Button";
export default function App() { return <Button />; }`,
		"/components/Button.jsx": `export default function Button() { return <button>go</button>; }`,
	})

	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, diag)
	require.Equal(t, "/App.jsx", g.Entry)
	require.Contains(t, g.Modules, "/App.jsx")
	require.Contains(t, g.Modules, "/components/Button.jsx")

	payload, diag := Assemble(g)
	require.Nil(t, diag)
	require.Contains(t, payload.ImportMap, "App.jsx")
	require.Contains(t, payload.ImportMap, "components/Button.jsx")
	// The alias specifier is rewritten to the canonical module key.
	require.Contains(t, g.Modules["/App.jsx"].Code, `"components/Button.jsx"`)
	require.NotContains(t, g.Modules["/App.jsx"].Code, `"@/components/Button"`)
}

func TestBuildFailsOnMissingImport(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `import Missing from "@/components/Missing";
export default () => <Missing />;`,
	})
	before := tr.Serialize()

	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, g)
	require.NotNil(t, diag)
	require.Equal(t, StageResolve, diag.Stage)
	require.Equal(t, "/App.jsx", diag.Path)
	require.Equal(t, "@/components/Missing", diag.Specifier)

	// A failed build never touches the tree.
	after := tr.Serialize()
	require.Equal(t, before, after)
}

func TestBuildFailsOnSyntaxError(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": "export default function App( { return <div>; }",
	})
	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, g)
	require.NotNil(t, diag)
	require.Equal(t, StageCompile, diag.Stage)
	require.Equal(t, "/App.jsx", diag.Path)
	require.NotZero(t, diag.Line)
}

func TestBuildMissingEntry(t *testing.T) {
	tr := buildTree(t, map[string]string{"/other.js": "export {}"})
	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, g)
	require.NotNil(t, diag)
	require.Equal(t, StageResolve, diag.Stage)
	require.Equal(t, DefaultEntry, diag.Specifier)
}

// countingTransformer instruments compilation to verify the at-most-once
// guarantee per build.
type countingTransformer struct {
	inner *transform.Transformer
	calls map[string]int
}

func (c *countingTransformer) Compile(path, source string) (*transform.Module, error) {
	c.calls[path]++
	return c.inner.Compile(path, source)
}

func TestSharedImportCompiledOnce(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `import A from "./a";
import B from "./b";
export default () => <div>{A()}{B()}</div>;`,
		"/a.jsx":      `import S from "./shared"; export default () => S;`,
		"/b.jsx":      `import S from "./shared"; export default () => S;`,
		"/shared.jsx": `export default 42;`,
	})

	ct := &countingTransformer{inner: transform.NewWithCacheSize(0), calls: map[string]int{}}
	g, diag := NewBuilder(tr, ct).Build(DefaultEntry)
	require.Nil(t, diag)
	require.Len(t, g.Modules, 4)
	require.Equal(t, 1, ct.calls["/shared.jsx"], "shared module compiled more than once")
}

func TestBuildIdempotent(t *testing.T) {
	files := map[string]string{
		"/App.jsx":     `import U from "./lib/util"; export default () => <p>{U}</p>;`,
		"/lib/util.js": `export default "u";`,
	}
	tr := buildTree(t, files)
	tf := transform.New()

	g1, diag := NewBuilder(tr, tf).Build(DefaultEntry)
	require.Nil(t, diag)
	g2, diag := NewBuilder(tr, tf).Build(DefaultEntry)
	require.Nil(t, diag)

	require.Equal(t, g1.Order, g2.Order)
	for p, m1 := range g1.Modules {
		m2, ok := g2.Modules[p]
		require.True(t, ok, "module %s missing in second build", p)
		require.Equal(t, m1.Code, m2.Code, "module %s differs across builds", p)
	}
}

func TestImportShapedStringLiteralIsNotAnImport(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `const tip = "import x from './docs'";
export default () => <pre>{tip}</pre>;`,
	})
	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, diag)
	require.Len(t, g.Modules, 1)
	require.Empty(t, g.Modules["/App.jsx"].Imports)
}

func TestCircularImportsTerminate(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `import { a } from "./a"; export default () => <p>{a}</p>;`,
		"/a.js":    `import { b } from "./b"; export const a = "a" + b;`,
		"/b.js":    `import { a } from "./a"; export const b = "b";`,
	})
	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, diag)
	require.Len(t, g.Modules, 3)
}

func TestStylesCollectedOrderedAndDeduplicated(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `import "./styles/app.css";
import Button from "./Button";
export default () => <Button />;`,
		"/Button.jsx": `import "./styles/button.css";
import "./styles/app.css";
export default () => <button />;`,
		"/styles/app.css":    ".app{}",
		"/styles/button.css": ".btn{}",
	})

	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, diag)
	require.Len(t, g.Styles, 2)
	require.Equal(t, "/styles/app.css", g.Styles[0].Path)
	require.Equal(t, "/styles/button.css", g.Styles[1].Path)

	payload, diag := Assemble(g)
	require.Nil(t, diag)
	require.Contains(t, payload.Styles, ".app{}")
	require.Contains(t, payload.Styles, ".btn{}")
}

func TestExternalsDeduplicatedAndMapped(t *testing.T) {
	tr := buildTree(t, map[string]string{
		"/App.jsx": `import React from "react";
import { useState } from "react";
import clsx from "clsx";
export default () => { const [n] = useState(0); return <p className={clsx("a")}>{n}</p>; };`,
	})
	g, diag := NewBuilder(tr, transform.New()).Build(DefaultEntry)
	require.Nil(t, diag)
	require.Equal(t, []string{"react", "clsx"}, g.External)

	payload, diag := Assemble(g)
	require.Nil(t, diag)
	require.Equal(t, "https://esm.sh/react", payload.ImportMap["react"])
	require.Equal(t, "https://esm.sh/clsx", payload.ImportMap["clsx"])
	// Bootstrap dependencies are always mapped.
	require.Equal(t, "https://esm.sh/react-dom/client", payload.ImportMap["react-dom/client"])
}
