//go:build linux

package fsutil

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// RenameNoReplace renames oldpath to newpath and fails with an error
// matching fs.ErrExist when newpath already exists. On Linux the check and
// the rename are one atomic renameat2 call.
func RenameNoReplace(oldpath, newpath string) error {
	err := unix.Renameat2(unix.AT_FDCWD, oldpath, unix.AT_FDCWD, newpath, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOSYS):
		return renameChecked(oldpath, newpath)
	case errors.Is(err, unix.EINVAL) && !Within(newpath, oldpath):
		// Filesystem without RENAME_NOREPLACE support. EINVAL for a directory
		// moved below itself is a real error and is returned as is.
		return renameChecked(oldpath, newpath)
	case errors.Is(err, unix.EEXIST):
		return existErr(oldpath, newpath)
	}
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
}
