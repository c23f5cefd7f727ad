//go:build !linux

package fsutil

// RenameNoReplace renames oldpath to newpath and fails with an error
// matching fs.ErrExist when newpath already exists.
func RenameNoReplace(oldpath, newpath string) error {
	return renameChecked(oldpath, newpath)
}
