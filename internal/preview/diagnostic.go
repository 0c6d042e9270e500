// Package preview turns a virtual tree snapshot into a self-contained,
// sandbox-loadable document: it walks the module graph from the entry file,
// compiles each reachable module once, maps every specifier to an executable
// resource, and assembles the final payload.
package preview

import "fmt"

// Stage names the pipeline phase a diagnostic originated from.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageCompile  Stage = "compile"
	StageAssemble Stage = "assemble"
	StageRuntime  Stage = "runtime"
)

// Diagnostic is the structured failure surfaced to the caller. It carries
// enough context to pinpoint the offending file without inspecting the tree.
type Diagnostic struct {
	Stage     Stage  `json:"stage"`
	Path      string `json:"path,omitempty"`
	Specifier string `json:"specifier,omitempty"`
	Message   string `json:"message"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

func (d *Diagnostic) Error() string {
	if d == nil {
		return ""
	}
	switch {
	case d.Specifier != "":
		return fmt.Sprintf("preview: %s: %s imports %q: %s", d.Stage, d.Path, d.Specifier, d.Message)
	case d.Path != "":
		return fmt.Sprintf("preview: %s: %s: %s", d.Stage, d.Path, d.Message)
	default:
		return fmt.Sprintf("preview: %s: %s", d.Stage, d.Message)
	}
}
