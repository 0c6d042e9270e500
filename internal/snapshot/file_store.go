package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"mockingbird/internal/safeio"
	"mockingbird/internal/vtree"
)

// FileStore keeps one JSON document per session under a root directory.
type FileStore struct {
	root *safeio.Root
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	root, err := safeio.NewRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &FileStore{root: root}, nil
}

func fileName(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("snapshot: invalid id %q", id)
	}
	return id + ".json", nil
}

func (s *FileStore) Save(_ context.Context, id string, data map[string]vtree.Entry) error {
	if s == nil {
		return fmt.Errorf("snapshot: store is nil")
	}
	name, err := fileName(id)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return s.root.WriteFileAtomic(name, raw, 0o644)
}

func (s *FileStore) Load(_ context.Context, id string) (map[string]vtree.Entry, error) {
	if s == nil {
		return nil, fmt.Errorf("snapshot: store is nil")
	}
	name, err := fileName(id)
	if err != nil {
		return nil, err
	}
	raw, err := s.root.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var data map[string]vtree.Entry
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", id, err)
	}
	return data, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("snapshot: store is nil")
	}
	name, err := fileName(id)
	if err != nil {
		return err
	}
	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
