package index

import (
	"github.com/starford/filedeck/internal/catalog"
	"github.com/starford/filedeck/internal/trash"
)

// Verify *DB satisfies the cache and ledger contracts at compile time.
var (
	_ catalog.StatsCache = (*DB)(nil)
	_ trash.Ledger       = (*DB)(nil)
)
