package vtree

import (
	"errors"
	"strings"
	"testing"
)

func mustCreate(t *testing.T, tr *Tree, p, content string) {
	t.Helper()
	if err := tr.CreateAll(p, content); err != nil {
		t.Fatalf("CreateAll(%q): %v", p, err)
	}
}

func listPaths(tr *Tree) []string {
	var out []string
	for p := range tr.List() {
		out = append(out, p)
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "/", want: "/"},
		{in: "@", want: "/"},
		{in: "@/App.jsx", want: "/App.jsx"},
		{in: "@/components/Button", want: "/components/Button"},
		{in: "/a//b/", want: "/a/b"},
		{in: "/a/./b", want: "/a/b"},
		{in: "/a/b/../c", want: "/a/c"},
		{in: "a/b", want: "/a/b"},
		{in: "/..", wantErr: true},
		{in: "/a/../../b", wantErr: true},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Normalize(%q) err=%v want ErrInvalidPath", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q)=%q want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateErrors(t *testing.T) {
	tr := New()
	if err := tr.Create("/App.jsx", "export default 1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tr.Create("/App.jsx", "dup"); !errors.Is(err, ErrPathConflict) {
		t.Fatalf("duplicate create err=%v want ErrPathConflict", err)
	}
	if err := tr.Create("/components/Button.jsx", "x"); !errors.Is(err, ErrMissingParent) {
		t.Fatalf("create without parent err=%v want ErrMissingParent", err)
	}
	if err := tr.CreateAll("/components/Button.jsx", "x"); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if err := tr.Create("/App.jsx/inner.js", "x"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("create under file err=%v want ErrTypeMismatch", err)
	}
}

func TestReadUpdateDelete(t *testing.T) {
	tr := New()
	mustCreate(t, tr, "/lib/util.js", "export const x = 1")

	got, err := tr.Read("/lib/util.js")
	if err != nil || got != "export const x = 1" {
		t.Fatalf("read: got=%q err=%v", got, err)
	}
	if _, err := tr.Read("/missing.js"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read missing err=%v want ErrNotFound", err)
	}
	if _, err := tr.Read("/lib"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("read dir err=%v want ErrTypeMismatch", err)
	}

	if err := tr.Update("/lib/util.js", "export const x = 2"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := tr.Read("/lib/util.js"); got != "export const x = 2" {
		t.Fatalf("after update got=%q", got)
	}
	if err := tr.Update("/missing.js", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing err=%v want ErrNotFound", err)
	}
	if err := tr.Update("/lib", "x"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("update dir err=%v want ErrTypeMismatch", err)
	}

	if err := tr.Delete("/missing.js"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing err=%v want ErrNotFound", err)
	}
	if err := tr.Delete("/"); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("delete root err=%v want ErrInvariantViolation", err)
	}
	if err := tr.Delete("/lib/util.js"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := tr.Lookup("/lib/util.js"); ok {
		t.Fatal("deleted file still in index")
	}
}

func TestDeleteDirectoryRemovesDescendants(t *testing.T) {
	tr := New()
	mustCreate(t, tr, "/components/Button.jsx", "b")
	mustCreate(t, tr, "/components/forms/Input.jsx", "i")
	mustCreate(t, tr, "/App.jsx", "a")

	if err := tr.Delete("/components"); err != nil {
		t.Fatalf("delete dir: %v", err)
	}
	for _, p := range listPaths(tr) {
		if strings.HasPrefix(p, "/components") {
			t.Fatalf("path %s survived directory delete", p)
		}
	}
	if tr.Len() != 2 { // root + /App.jsx
		t.Fatalf("Len=%d want 2", tr.Len())
	}
}

func TestRenameDirectoryRewritesDescendants(t *testing.T) {
	tr := New()
	mustCreate(t, tr, "/components/Button.jsx", "b")
	mustCreate(t, tr, "/components/forms/Input.jsx", "i")

	if err := tr.Rename("/components", "/ui"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	for _, p := range []string{"/ui", "/ui/Button.jsx", "/ui/forms", "/ui/forms/Input.jsx"} {
		if _, ok := tr.Lookup(p); !ok {
			t.Fatalf("missing %s after rename", p)
		}
	}
	for _, p := range listPaths(tr) {
		if strings.HasPrefix(p, "/components") {
			t.Fatalf("stale path %s after rename", p)
		}
	}
	if got, err := tr.Read("/ui/forms/Input.jsx"); err != nil || got != "i" {
		t.Fatalf("read moved file: got=%q err=%v", got, err)
	}
}

func TestRenameErrors(t *testing.T) {
	tr := New()
	mustCreate(t, tr, "/a.js", "a")
	mustCreate(t, tr, "/b.js", "b")
	mustCreate(t, tr, "/dir/c.js", "c")

	if err := tr.Rename("/missing.js", "/x.js"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename missing err=%v want ErrNotFound", err)
	}
	if err := tr.Rename("/a.js", "/b.js"); !errors.Is(err, ErrPathConflict) {
		t.Fatalf("rename onto existing err=%v want ErrPathConflict", err)
	}
	if err := tr.Rename("/a.js", "/nodir/a.js"); !errors.Is(err, ErrMissingParent) {
		t.Fatalf("rename into missing dir err=%v want ErrMissingParent", err)
	}
	if err := tr.Rename("/dir", "/dir/sub"); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("rename into own subtree err=%v want ErrInvariantViolation", err)
	}
	if err := tr.Rename("/", "/root2"); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("rename root err=%v want ErrInvariantViolation", err)
	}
}

func TestListOrder(t *testing.T) {
	tr := New()
	mustCreate(t, tr, "/b.js", "1")
	mustCreate(t, tr, "/a/x.js", "2")
	mustCreate(t, tr, "/a/y.js", "3")
	mustCreate(t, tr, "/c.js", "4")

	want := []string{"/", "/b.js", "/a", "/a/x.js", "/a/y.js", "/c.js"}
	got := listPaths(tr)
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v want=%v", got, want)
		}
	}

	// Restartable: a second full walk yields the same sequence.
	again := listPaths(tr)
	for i := range want {
		if again[i] != want[i] {
			t.Fatalf("second walk got=%v want=%v", again, want)
		}
	}

	// Early break must not poison later walks.
	for range tr.List() {
		break
	}
	if n := len(listPaths(tr)); n != len(want) {
		t.Fatalf("walk after break yielded %d entries, want %d", n, len(want))
	}
}

func TestAliasPaths(t *testing.T) {
	tr := New()
	mustCreate(t, tr, "@/components/Button.jsx", "b")
	if _, ok := tr.Lookup("/components/Button.jsx"); !ok {
		t.Fatal("alias-created file not reachable at absolute path")
	}
	if got, err := tr.Read("@/components/Button.jsx"); err != nil || got != "b" {
		t.Fatalf("alias read: got=%q err=%v", got, err)
	}
}
