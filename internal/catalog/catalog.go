// Package catalog lists directories and aggregates subtree statistics. All
// results are computed live from the filesystem; an optional StatsCache may
// short-circuit Statistics and is invalidated by the callers that mutate.
package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/maruel/natural"

	"github.com/starford/filedeck/internal/models"
	"github.com/starford/filedeck/internal/pathresolver"
)

// StatsCache stores Statistics results keyed by managed-root relative path.
type StatsCache interface {
	GetStats(rel string) (models.Stats, bool, error)
	PutStats(rel string, s models.Stats) error
	// InvalidateStats drops rel, every ancestor of rel and everything below it.
	InvalidateStats(rel string) error
	ClearStats() error
}

// Catalog reads directories below the managed root.
type Catalog struct {
	resolver *pathresolver.Resolver
	cache    StatsCache

	// epoch advances on every invalidation. A walk result is cached only if
	// no invalidation happened between the start of the walk and the write.
	epoch atomic.Uint64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStatsCache enables caching of Statistics results.
func WithStatsCache(c StatsCache) Option {
	return func(cat *Catalog) {
		cat.cache = c
	}
}

// New creates a Catalog over the resolver's root.
func New(resolver *pathresolver.Resolver, opts ...Option) *Catalog {
	c := &Catalog{resolver: resolver}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the entries of dir, directories first, each group in
// case-insensitive natural order. An unreadable directory yields an empty
// listing.
func (c *Catalog) List(ctx context.Context, dir pathresolver.Resolved) []models.DirEntry {
	return ListDir(ctx, dir.String())
}

// ListDir lists an arbitrary absolute directory with the same ordering as
// List. It is used for the trash root, which lives outside the managed root.
func ListDir(_ context.Context, dir string) []models.DirEntry {
	des, err := os.ReadDir(dir)
	if err != nil {
		slog.Debug("catalog: read dir failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return []models.DirEntry{}
	}
	out := make([]models.DirEntry, 0, len(des))
	for _, de := range des {
		e := models.DirEntry{Name: de.Name(), IsDir: de.IsDir()}
		// Follow symlinks for presentation, like a stat() would.
		info, err := os.Stat(filepath.Join(dir, de.Name()))
		if err != nil {
			info, err = de.Info()
		}
		if err == nil {
			e.IsDir = info.IsDir()
			e.ModTime = info.ModTime()
			if !e.IsDir && info.Size() > 0 {
				e.Size = uint64(info.Size())
			}
		}
		out = append(out, e)
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries directories first, then by case-insensitive
// natural name order.
func SortEntries(entries []models.DirEntry) {
	slices.SortStableFunc(entries, func(a, b models.DirEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return CompareNames(a.Name, b.Name)
	})
}

// CompareNames compares two names case-insensitively with numeric runs
// compared by value ("file2" < "file10"). Names equal under folding fall back
// to byte order so the result is deterministic.
func CompareNames(a, b string) int {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	switch {
	case natural.Less(la, lb):
		return -1
	case natural.Less(lb, la):
		return 1
	}
	return strings.Compare(a, b)
}

// Statistics walks every descendant of dir. Directories are counted with no
// size, unreadable subtrees are skipped and dir itself is not counted.
func (c *Catalog) Statistics(ctx context.Context, dir pathresolver.Resolved) models.Stats {
	rel := c.resolver.Rel(dir)
	epoch := c.epoch.Load()
	if c.cache != nil {
		if s, ok, err := c.cache.GetStats(rel); err == nil && ok {
			return s
		} else if err != nil {
			slog.Warn("catalog: stats cache read failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
	}

	s, err := Walk(ctx, dir.String())
	if err != nil {
		// Interrupted walks are not cached.
		slog.Debug("catalog: walk interrupted", slog.String("path", rel), slog.String("error", err.Error()))
		return s
	}
	if c.cache != nil {
		c.store(rel, s, epoch)
	}
	return s
}

// store caches s for rel unless the cache was invalidated after epoch was
// read. An invalidation that lands while PutStats runs is caught by the
// second check and the row is dropped again.
func (c *Catalog) store(rel string, s models.Stats, epoch uint64) {
	if c.epoch.Load() != epoch {
		return
	}
	if err := c.cache.PutStats(rel, s); err != nil {
		slog.Warn("catalog: stats cache write failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if c.epoch.Load() != epoch {
		if err := c.cache.InvalidateStats(rel); err != nil {
			slog.Warn("catalog: stats cache invalidate failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
	}
}

// Walk computes statistics for an absolute directory. It returns the partial
// result together with ctx.Err() when the context ends mid-walk.
func Walk(ctx context.Context, root string) (models.Stats, error) {
	var (
		mu sync.Mutex
		s  models.Stats
	)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return s, nil
	}

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			// Unreadable entry or subtree; keep walking the rest.
			return nil
		}
		if p == root {
			return nil
		}
		if d.IsDir() {
			mu.Lock()
			s.Folders++
			mu.Unlock()
			return nil
		}
		var size uint64
		if info, ierr := d.Info(); ierr == nil && info.Size() > 0 {
			size = uint64(info.Size())
		}
		mu.Lock()
		s.Files++
		s.Bytes += size
		mu.Unlock()
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return s, ctx.Err()
	}
	return s, nil
}

// InvalidateStats drops cached statistics for rel, its ancestors and its
// descendants. Walks already running when it is called do not cache their
// result.
func (c *Catalog) InvalidateStats(rel string) error {
	c.epoch.Add(1)
	if c.cache == nil {
		return nil
	}
	return c.cache.InvalidateStats(rel)
}

// ClearStats drops every cached result.
func (c *Catalog) ClearStats() error {
	c.epoch.Add(1)
	if c.cache == nil {
		return nil
	}
	return c.cache.ClearStats()
}

// Invalidate is InvalidateStats with the error logged.
func (c *Catalog) Invalidate(rel string) {
	if err := c.InvalidateStats(rel); err != nil {
		slog.Warn("catalog: stats cache invalidate failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}
