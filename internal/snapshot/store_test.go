package snapshot

import (
	"context"
	"errors"
	"testing"

	"mockingbird/internal/vtree"
)

func sampleData(t *testing.T) map[string]vtree.Entry {
	t.Helper()
	tr := vtree.New()
	for p, c := range map[string]string{
		"/App.jsx":               "export default () => null",
		"/components/Button.jsx": "button",
	} {
		if err := tr.CreateAll(p, c); err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
	return tr.Serialize()
}

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	data := sampleData(t)

	if err := s.Save(ctx, "sess-1", data); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	back, err := vtree.Deserialize(got)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	orig, err := vtree.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize orig: %v", err)
	}
	if !vtree.Equal(orig, back) {
		t.Fatalf("round trip mismatch: got=%v want=%v", got, data)
	}

	if _, err := s.Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load missing err=%v want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load deleted err=%v want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	testStoreRoundTrip(t, s)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"", "../escape", "a/b"} {
		if err := s.Save(ctx, id, nil); err == nil {
			t.Fatalf("Save(%q) accepted an invalid id", id)
		}
	}
}
