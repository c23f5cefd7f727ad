// Package fsutil holds the few filesystem primitives the core needs beyond
// the os package: renames that never replace, cross-volume moves, and the
// exclusive lock taken while an edited file is written back.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrCrossDevice is returned by Move when the fallback copy was used. The
// move still succeeded but was not atomic.
var ErrCrossDevice = errors.New("moved across devices")

// Within reports whether path is parent or lies below it. Both paths must be
// clean and absolute.
func Within(path, parent string) bool {
	if path == parent {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(parent, string(filepath.Separator))+string(filepath.Separator))
}

func existErr(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrExist}
}

// renameChecked is the portable fallback: check then rename. It narrows but
// does not close the window in which newpath can appear.
func renameChecked(oldpath, newpath string) error {
	if _, err := os.Lstat(newpath); err == nil {
		return existErr(oldpath, newpath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(oldpath, newpath)
}

// Move renames oldpath to newpath without replacing an existing newpath.
// When the paths are on different volumes the tree is copied and the source
// removed, and Move returns ErrCrossDevice after that fallback succeeds.
func Move(oldpath, newpath string) error {
	err := RenameNoReplace(oldpath, newpath)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if _, lerr := os.Lstat(newpath); lerr == nil {
		return existErr(oldpath, newpath)
	}
	if err := CopyTree(oldpath, newpath); err != nil {
		_ = os.RemoveAll(newpath)
		return fmt.Errorf("fsutil: copy %s: %w", oldpath, err)
	}
	if err := os.RemoveAll(oldpath); err != nil {
		return fmt.Errorf("fsutil: remove source after copy: %w", err)
	}
	return ErrCrossDevice
}

// CopyTree copies a file or directory tree from src to dst. dst must not
// exist.
func CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.CopyFS(dst, os.DirFS(src))
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
