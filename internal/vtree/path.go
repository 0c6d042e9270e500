package vtree

import (
	"fmt"
	"path"
	"strings"
)

// AliasPrefix is the reserved specifier prefix that maps to the tree root,
// so "@/components/Button" and "/components/Button" name the same node.
const AliasPrefix = "@/"

// Normalize returns the canonical absolute form of p: alias prefix expanded,
// "." and ".." segments collapsed, a single leading separator, no trailing
// separator except for the root itself. A path that climbs past the root has
// no root-relative form and is rejected.
func Normalize(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if p == "@" {
		return "/", nil
	}
	if strings.HasPrefix(p, AliasPrefix) {
		p = "/" + p[len(AliasPrefix):]
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, p)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(out, "/"), nil
}

// Parent returns the containing directory of a normalized path.
func Parent(p string) string {
	return path.Dir(p)
}

// Base returns the last element of a normalized path.
func Base(p string) string {
	return path.Base(p)
}

// Ext returns the extension of a normalized path, including the dot.
func Ext(p string) string {
	return path.Ext(p)
}

// isDescendant reports whether p lies strictly inside dir.
func isDescendant(p, dir string) bool {
	if dir == "/" {
		return p != "/"
	}
	return strings.HasPrefix(p, dir+"/")
}
