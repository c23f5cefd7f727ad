//go:build !unix

package fsutil

import (
	"os"
	"sync"
)

type pathLock struct {
	mu   sync.Mutex
	refs int
}

var (
	locksMu sync.Mutex
	locks   = map[string]*pathLock{}
)

// LockExclusive serializes writers of the same path within this process.
// Platforms without flock get no protection against other processes.
func LockExclusive(f *os.File) (func() error, error) {
	key := f.Name()
	locksMu.Lock()
	l, ok := locks[key]
	if !ok {
		l = &pathLock{}
		locks[key] = l
	}
	l.refs++
	locksMu.Unlock()

	l.mu.Lock()
	return func() error {
		l.mu.Unlock()
		locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(locks, key)
		}
		locksMu.Unlock()
		return nil
	}, nil
}
