package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteAtomic streams r into dst through a temp file in the same directory:
// write, fsync, rename. An existing dst is replaced and keeps its
// permission bits; a new file gets perm. It returns the bytes written.
func WriteAtomic(dst string, r io.Reader, perm fs.FileMode) (int64, error) {
	if info, err := os.Stat(dst); err == nil {
		if !info.Mode().IsRegular() {
			return 0, fmt.Errorf("fsutil: %s is not a regular file", dst)
		}
		perm = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("fsutil: stat %s: %w", dst, err)
	}

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".filedeck-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("fsutil: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("fsutil: write temp: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return n, fmt.Errorf("fsutil: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("fsutil: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("fsutil: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return n, fmt.Errorf("fsutil: rename: %w", err)
	}
	success = true
	return n, nil
}
