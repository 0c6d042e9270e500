// Package snapshot persists serialized virtual trees. Only the tree's flat
// serialized form is ever stored; derived build artifacts are not.
package snapshot

import (
	"context"
	"errors"

	"mockingbird/internal/vtree"
)

// Store persists serialized trees keyed by session ID.
type Store interface {
	Save(ctx context.Context, id string, data map[string]vtree.Entry) error
	Load(ctx context.Context, id string) (map[string]vtree.Entry, error)
	Delete(ctx context.Context, id string) error
}

// ErrNotFound is returned when no snapshot exists for an ID.
var ErrNotFound = errors.New("snapshot not found")
