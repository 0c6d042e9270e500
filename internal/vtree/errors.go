package vtree

import "errors"

// Mutation failures are always recoverable: the tree is left untouched and
// the caller decides whether to retry with a different path.
var (
	ErrPathConflict       = errors.New("vtree: path already exists")
	ErrMissingParent      = errors.New("vtree: parent directory does not exist")
	ErrNotFound           = errors.New("vtree: path not found")
	ErrTypeMismatch       = errors.New("vtree: node kind does not support operation")
	ErrInvariantViolation = errors.New("vtree: operation would break a tree invariant")
	ErrInvalidPath        = errors.New("vtree: path has no root-relative normalized form")
)
