package transform

import (
	"errors"
	"strings"
	"testing"
)

func TestCompileJSX(t *testing.T) {
	src := `import React from "react";
import Button from "@/components/Button";

export default function App() {
  return <div className="app"><Button label="go" /></div>;
}`
	tr := New()
	m, err := tr.Compile("/App.jsx", src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(m.Code, "React.createElement") {
		t.Fatalf("markup not rewritten to call form:\n%s", m.Code)
	}
	if strings.Contains(m.Code, "<div") {
		t.Fatalf("raw markup survived transform:\n%s", m.Code)
	}
	want := []string{"react", "@/components/Button"}
	if len(m.Imports) != len(want) {
		t.Fatalf("imports=%v want=%v", m.Imports, want)
	}
	for i := range want {
		if m.Imports[i] != want[i] {
			t.Fatalf("imports=%v want=%v", m.Imports, want)
		}
	}
}

func TestCompilePlainScript(t *testing.T) {
	src := `export const add = (a, b) => a + b;`
	m, err := New().Compile("/lib/math.js", src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(m.Imports) != 0 {
		t.Fatalf("unexpected imports: %v", m.Imports)
	}
	if !strings.Contains(m.Code, "add") {
		t.Fatalf("export lost: %s", m.Code)
	}
}

func TestCompileSyntaxError(t *testing.T) {
	src := "export default function App( {\n  return <div>;\n}"
	_, err := New().Compile("/App.jsx", src)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%v want *ParseError", err)
	}
	if pe.Path != "/App.jsx" {
		t.Fatalf("path=%q", pe.Path)
	}
	if pe.Line == 0 {
		t.Fatalf("missing location: %+v", pe)
	}
	if pe.Message == "" {
		t.Fatal("empty message")
	}
}

func TestCompileCacheSkipsRecompile(t *testing.T) {
	tr := New()
	src := `export default 1;`
	if _, err := tr.Compile("/a.js", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := tr.Compile("/a.js", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := tr.CompileCount(); got != 1 {
		t.Fatalf("CompileCount=%d want 1", got)
	}
	// A content change must miss the cache.
	if _, err := tr.Compile("/a.js", `export default 2;`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := tr.CompileCount(); got != 2 {
		t.Fatalf("CompileCount=%d want 2", got)
	}
}

func TestStyleClassification(t *testing.T) {
	if !IsStyle("/styles/app.css") {
		t.Fatal("css not classified as style")
	}
	if IsStyle("/App.jsx") {
		t.Fatal("jsx misclassified as style")
	}
	if _, err := New().Compile("/styles/app.css", ".a{}"); err == nil {
		t.Fatal("style compiled as module")
	}
}

func TestScanImports(t *testing.T) {
	code := `import React from "react";
import "./side-effect.js";
import { a, b } from "./lib.js";
import * as ns from "./ns.js";
import Def, { mixed } from "./mixed.js";
export { c } from "./re-export.js";
export * from "./star.js";
import React2 from "react";
`
	got := ScanImports(code)
	want := []string{"react", "./side-effect.js", "./lib.js", "./ns.js", "./mixed.js", "./re-export.js", "./star.js"}
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v want=%v", got, want)
		}
	}
}

func TestScanSkipsLiteralsCommentsAndDynamicImports(t *testing.T) {
	code := `import Real from "./real.js";
const tip = "import x from './docs'";
const tpl = ` + "`export { y } from \"./tpl\"`" + `;
// import Commented from "./comment";
/* export { z } from "./block"; */
const re = /import ["']trap["']/;
const lazy = () => import("./lazy.js");
const meta = import.meta;
export const label = "from './initializer'";
export { Real };
`
	got := ScanImports(code)
	want := []string{"./real.js"}
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	if got[0] != want[0] {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestRewriteImports(t *testing.T) {
	code := `import Button from "@/components/Button";
import "./app.css";
import React from "react";`
	out := RewriteImports(code, map[string]string{
		"@/components/Button": "components/Button.jsx",
	})
	if !strings.Contains(out, `from "components/Button.jsx"`) {
		t.Fatalf("specifier not rewritten:\n%s", out)
	}
	if !strings.Contains(out, `import "./app.css"`) || !strings.Contains(out, `from "react"`) {
		t.Fatalf("unmapped specifiers must stay untouched:\n%s", out)
	}
}
