// Package safeio confines file operations to a fixed root directory. The
// snapshot file backend goes through it so a malformed session ID can never
// escape the store's directory.
package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Root is a directory that all operations are resolved against. Paths that
// climb out of it, directly or through symlinks, are rejected.
type Root struct {
	absRoot string // absolute, symlink-free
}

// NewRoot locks all future operations to the given directory, creating it
// if needed.
func NewRoot(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Root{absRoot: abs}, nil
}

// Dir returns the absolute root directory.
func (r *Root) Dir() string {
	if r == nil {
		return ""
	}
	return r.absRoot
}

// ReadFile reads a file resolved against the root.
func (r *Root) ReadFile(name string) ([]byte, error) {
	p, err := r.resolve(name, false)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	return os.ReadFile(p)
}

// WriteFileAtomic writes data under the root via a temp file and rename, so
// a crash mid-write never leaves a truncated file behind.
func (r *Root) WriteFileAtomic(name string, data []byte, perm fs.FileMode) error {
	p, err := r.resolve(name, true)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Remove deletes a file resolved against the root.
func (r *Root) Remove(name string) error {
	p, err := r.resolve(name, false)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// resolve maps name onto an absolute path under the root. When creating is
// true the final path component may not exist yet; its parent must still
// resolve inside the root.
func (r *Root) resolve(name string, creating bool) (string, error) {
	if r == nil {
		return "", errors.New("safeio: root not configured")
	}
	if name == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("safeio: path traversal not allowed")
	}
	joined := filepath.Join(r.absRoot, clean)

	target := joined
	if creating {
		target = filepath.Dir(joined)
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, r.absRoot) {
		return "", fmt.Errorf("safeio: resolved outside root (root=%s, path=%s)", r.absRoot, resolved)
	}
	if creating {
		return filepath.Join(resolved, filepath.Base(joined)), nil
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path+sep, root)
}
