package preview

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the ready result of a successful build. Document is fully
// self-contained: the sandbox needs nothing but this text (and network
// access for external packages).
type Payload struct {
	Entry     string            `json:"entry"`     // entry module key in the import map
	ImportMap map[string]string `json:"importMap"` // specifier key -> resource locator
	Styles    string            `json:"styles"`    // concatenated stylesheet text, traversal order
	Document  string            `json:"document"`  // sandbox-loadable HTML
}

// The sandbox shell is always host-supplied; nothing user-authored ever
// contributes to the document skeleton, only to module bodies and styles.
const documentShell = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<script type="importmap">
%s
</script>
<style>
%s
</style>
</head>
<body>
<div id="root"></div>
<script type="module">
%s
</script>
</body>
</html>
`

// bootstrapTemplate loads the entry module inside an error boundary: any
// load or first-render failure is reported to the host as a structured
// runtime error instead of dying silently inside the iframe.
const bootstrapTemplate = `const report = (err) => parent.postMessage({
  type: "runtime-error",
  message: String((err && err.message) || err),
  stack: (err && err.stack) || undefined
}, "*");
window.addEventListener("error", (e) => report(e.error || e.message));
window.addEventListener("unhandledrejection", (e) => report(e.reason));
Promise.all([import("react"), import("react-dom/client"), import(%s)])
  .then(([reactMod, domMod, appMod]) => {
    const React = reactMod.default || reactMod;
    const { createRoot } = domMod;
    const App = appMod.default;
    if (typeof App !== "function") {
      throw new Error("entry module has no default component export");
    }
    createRoot(document.getElementById("root")).render(React.createElement(App));
    parent.postMessage({ type: "render-ok" }, "*");
  })
  .catch(report);`

// runtimeDeps are always present in the import map because the bootstrap
// itself imports them, whether or not user modules do.
var runtimeDeps = []string{"react", "react-dom/client"}

// Assemble turns a walked graph into the final payload.
func Assemble(g *Graph) (*Payload, *Diagnostic) {
	if g == nil || g.Modules[g.Entry] == nil {
		return nil, &Diagnostic{Stage: StageAssemble, Message: "graph has no entry module"}
	}

	importMap := make(map[string]string, len(g.Order)+len(g.External)+len(runtimeDeps))
	for _, path := range g.Order {
		m := g.Modules[path]
		importMap[moduleKey(path)] = "data:text/javascript;base64," +
			base64.StdEncoding.EncodeToString([]byte(m.Code))
	}
	for _, pkg := range g.External {
		importMap[pkg] = externalBase + pkg
	}
	for _, pkg := range runtimeDeps {
		if _, ok := importMap[pkg]; !ok {
			importMap[pkg] = externalBase + pkg
		}
	}

	mapJSON, err := json.MarshalIndent(map[string]any{"imports": importMap}, "", "  ")
	if err != nil {
		return nil, &Diagnostic{Stage: StageAssemble, Message: err.Error()}
	}

	var styles strings.Builder
	for i, s := range g.Styles {
		if i > 0 {
			styles.WriteString("\n")
		}
		styles.WriteString(s.CSS)
	}

	entryKey := moduleKey(g.Entry)
	quotedEntry, err := json.Marshal(entryKey)
	if err != nil {
		return nil, &Diagnostic{Stage: StageAssemble, Message: err.Error()}
	}
	bootstrap := fmt.Sprintf(bootstrapTemplate, string(quotedEntry))

	doc := fmt.Sprintf(documentShell, mapJSON, escapeStyleText(styles.String()), bootstrap)
	return &Payload{
		Entry:     entryKey,
		ImportMap: importMap,
		Styles:    styles.String(),
		Document:  doc,
	}, nil
}

// escapeStyleText keeps user CSS from closing the host style element.
func escapeStyleText(css string) string {
	return strings.ReplaceAll(css, "</style", `<\/style`)
}
