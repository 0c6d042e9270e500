package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mockingbird/internal/session"
	"mockingbird/internal/vtree"
)

// ForSession returns the fixed tool surface bound to one session.
func ForSession(s *session.Session) *Registry {
	return NewRegistry(
		&fsCreateTool{s: s},
		&fsReadTool{s: s},
		&fsUpdateTool{s: s},
		&fsDeleteTool{s: s},
		&fsRenameTool{s: s},
		&fsListTool{s: s},
	)
}

// --------------------- fs.create ---------------------

type fsCreateTool struct{ s *session.Session }

func (t *fsCreateTool) Spec() Spec {
	return Spec{
		Name:        "fs.create",
		Description: "Create a file in the virtual tree, optionally creating parent directories.",
	}
}

type fsCreateInput struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	MakeParent bool   `json:"makeParents,omitempty"`
}

func (t *fsCreateTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in fsCreateInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Path) == "" {
		return nil, fmt.Errorf("fs.create: path required")
	}
	err := t.s.Apply(func(tr *vtree.Tree) error {
		if in.MakeParent {
			return tr.CreateAll(in.Path, in.Content)
		}
		return tr.Create(in.Path, in.Content)
	})
	if err != nil {
		return nil, err
	}
	return okResult(in.Path)
}

// --------------------- fs.read ---------------------

type fsReadTool struct{ s *session.Session }

func (t *fsReadTool) Spec() Spec {
	return Spec{
		Name:        "fs.read",
		Description: "Read a file's content from the virtual tree.",
	}
}

type fsReadInput struct {
	Path string `json:"path"`
}

type fsReadOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *fsReadTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in fsReadInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Path) == "" {
		return nil, fmt.Errorf("fs.read: path required")
	}
	var content string
	err := t.s.View(func(tr *vtree.Tree) error {
		var err error
		content, err = tr.Read(in.Path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(fsReadOutput{Path: in.Path, Content: content})
}

// --------------------- fs.update ---------------------

type fsUpdateTool struct{ s *session.Session }

func (t *fsUpdateTool) Spec() Spec {
	return Spec{
		Name:        "fs.update",
		Description: "Replace the content of an existing file.",
	}
}

type fsUpdateInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *fsUpdateTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in fsUpdateInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Path) == "" {
		return nil, fmt.Errorf("fs.update: path required")
	}
	if err := t.s.Apply(func(tr *vtree.Tree) error {
		return tr.Update(in.Path, in.Content)
	}); err != nil {
		return nil, err
	}
	return okResult(in.Path)
}

// --------------------- fs.delete ---------------------

type fsDeleteTool struct{ s *session.Session }

func (t *fsDeleteTool) Spec() Spec {
	return Spec{
		Name:        "fs.delete",
		Description: "Delete a file or directory (recursively) from the virtual tree.",
	}
}

type fsDeleteInput struct {
	Path string `json:"path"`
}

func (t *fsDeleteTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in fsDeleteInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Path) == "" {
		return nil, fmt.Errorf("fs.delete: path required")
	}
	if err := t.s.Apply(func(tr *vtree.Tree) error {
		return tr.Delete(in.Path)
	}); err != nil {
		return nil, err
	}
	return okResult(in.Path)
}

// --------------------- fs.rename ---------------------

type fsRenameTool struct{ s *session.Session }

func (t *fsRenameTool) Spec() Spec {
	return Spec{
		Name:        "fs.rename",
		Description: "Move a file or directory; directory renames carry every descendant.",
	}
}

type fsRenameInput struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (t *fsRenameTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in fsRenameInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.From) == "" || strings.TrimSpace(in.To) == "" {
		return nil, fmt.Errorf("fs.rename: from and to required")
	}
	if err := t.s.Apply(func(tr *vtree.Tree) error {
		return tr.Rename(in.From, in.To)
	}); err != nil {
		return nil, err
	}
	return okResult(in.To)
}

// --------------------- fs.list ---------------------

type fsListTool struct{ s *session.Session }

func (t *fsListTool) Spec() Spec {
	return Spec{
		Name:        "fs.list",
		Description: "List every path in the virtual tree in depth-first order.",
	}
}

type fsListEntry struct {
	Path string     `json:"path"`
	Kind vtree.Kind `json:"kind"`
}

func (t *fsListTool) Call(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	var entries []fsListEntry
	err := t.s.View(func(tr *vtree.Tree) error {
		for p, n := range tr.List() {
			entries = append(entries, fsListEntry{Path: p, Kind: n.Kind()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

func okResult(path string) (json.RawMessage, error) {
	return json.Marshal(struct {
		OK   bool   `json:"ok"`
		Path string `json:"path"`
	}{OK: true, Path: path})
}
