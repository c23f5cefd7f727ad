// Package pathresolver confines untrusted relative paths to the managed root.
//
// Every filesystem call in filedeck operates on a Resolved value produced
// here. A resolution that would leave the root (through "..", symlinks or
// dangling links) degrades to the root itself instead of failing; callers
// that mutate the filesystem must refuse to act on the root.
package pathresolver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/filedeck/internal/apperr"
)

// Resolved is an absolute path guaranteed to lie within the managed root.
type Resolved string

// String returns the absolute path.
func (r Resolved) String() string { return string(r) }

// Resolver maps relative paths onto a fixed root directory.
type Resolver struct {
	root string // absolute, symlinks evaluated
}

// New creates a Resolver rooted at dir. The directory must already exist.
func New(dir string) (*Resolver, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("pathresolver: resolve root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("pathresolver: canonicalize root: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("pathresolver: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pathresolver: root is not a directory: %s", real)
	}
	return &Resolver{root: real}, nil
}

// Normalize turns an untrusted path into a clean relative path: backslashes
// become slashes, empty and "." segments are dropped and ".." pops the
// previous segment (and is ignored at the top). The result has no leading or
// trailing slash. Normalize is idempotent.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, `\`, "/")
	parts := make([]string, 0, strings.Count(raw, "/")+1)
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

// Root returns the managed root.
func (r *Resolver) Root() Resolved { return Resolved(r.root) }

// IsRoot reports whether p is the managed root itself.
func (r *Resolver) IsRoot(p Resolved) bool { return string(p) == r.root }

// Resolve normalizes rel and maps it under the root. Symlinks in the existing
// part of the path are evaluated; the missing tail is appended lexically.
// Any result outside the root degrades to the root.
func (r *Resolver) Resolve(rel string) Resolved {
	clean := Normalize(rel)
	if clean == "" {
		return Resolved(r.root)
	}
	full := filepath.Join(r.root, filepath.FromSlash(clean))
	canon, err := canonicalize(full)
	if err == nil && !r.within(canon) {
		err = apperr.ErrPathEscape
	}
	if err != nil {
		slog.Warn("path resolution degraded to root",
			slog.String("path", clean),
			slog.String("error", err.Error()))
		return Resolved(r.root)
	}
	return Resolved(canon)
}

// Join resolves leaf relative to an already resolved directory.
func (r *Resolver) Join(dir Resolved, leaf string) Resolved {
	base := r.Rel(dir)
	if base == "" {
		return r.Resolve(leaf)
	}
	return r.Resolve(base + "/" + leaf)
}

// Rel returns the slash-separated path of p relative to the root ("" for the
// root itself).
func (r *Resolver) Rel(p Resolved) string {
	rel, err := filepath.Rel(r.root, string(p))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (r *Resolver) within(p string) bool {
	if p == r.root {
		return true
	}
	prefix := r.root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(p, prefix)
}

// canonicalize evaluates symlinks in the longest existing prefix of p and
// re-appends the non-existent remainder. A dangling symlink anywhere on the
// way is an error: creating through it would land wherever it points.
func canonicalize(p string) (string, error) {
	var rest []string
	cur := p
	for {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{real}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			return "", fmt.Errorf("dangling link %s: %w", cur, apperr.ErrPathEscape)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
