package index

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Sync brings the index in line with disk at startup:
//   - cached statistics are dropped, since the tree may have changed while
//     nothing was watching
//   - ledger entries whose item is no longer in trashRoot are removed
func Sync(db *DB, trashRoot string, logger *slog.Logger) error {
	if err := db.ClearStats(); err != nil {
		return err
	}

	names, err := db.TrashNames()
	if err != nil {
		return err
	}
	for n := range names {
		if _, err := os.Lstat(filepath.Join(trashRoot, n)); err == nil {
			continue
		}
		if err := db.ForgetTrash(n); err != nil {
			logger.Warn("sync: forget failed", slog.String("name", n), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale ledger entry", slog.String("name", n))
		}
	}
	return nil
}
