//go:build unix

package fsutil

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// LockExclusive blocks until an exclusive advisory lock on f is held and
// returns the function releasing it. flock locks belong to the open file
// description, so two writers in the same process exclude each other as
// long as each opened the file itself.
func LockExclusive(f *os.File) (func() error, error) {
	fd := int(f.Fd())
	for {
		err := unix.Flock(fd, unix.LOCK_EX)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EINTR) {
			return nil, fmt.Errorf("fsutil: flock %s: %w", f.Name(), err)
		}
	}
	return func() error { return unix.Flock(fd, unix.LOCK_UN) }, nil
}
