package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/filedeck/internal/models"
	"github.com/starford/filedeck/internal/pathresolver"
)

func tempCatalog(t *testing.T, opts ...Option) (*Catalog, *pathresolver.Resolver, string) {
	t.Helper()
	r, err := pathresolver.New(t.TempDir())
	if err != nil {
		t.Fatalf("pathresolver.New: %v", err)
	}
	return New(r, opts...), r, r.Root().String()
}

func write(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func names(entries []models.DirEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestListOrdersDirectoriesFirst(t *testing.T) {
	c, r, root := tempCatalog(t)
	write(t, filepath.Join(root, "b.txt"), 1)
	write(t, filepath.Join(root, "a.txt"), 1)
	for _, d := range []string{"A", "B"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	got := strings.Join(names(c.List(context.Background(), r.Root())), ",")
	if got != "A,B,a.txt,b.txt" {
		t.Errorf("order = %s, want A,B,a.txt,b.txt", got)
	}
}

func TestListNaturalCaseInsensitive(t *testing.T) {
	c, r, root := tempCatalog(t)
	for _, n := range []string{"file10.txt", "File2.txt", "file1.txt", "apple.txt"} {
		write(t, filepath.Join(root, n), 0)
	}
	got := strings.Join(names(c.List(context.Background(), r.Root())), ",")
	if got != "apple.txt,file1.txt,File2.txt,file10.txt" {
		t.Errorf("order = %s", got)
	}
}

func TestListEntryFields(t *testing.T) {
	c, r, root := tempCatalog(t)
	write(t, filepath.Join(root, "data.bin"), 42)
	write(t, filepath.Join(root, "sub", "inner.txt"), 7)

	entries := c.List(context.Background(), r.Root())
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if !entries[0].IsDir || entries[0].Size != 0 {
		t.Errorf("sub = %+v, want dir with size 0", entries[0])
	}
	if entries[1].IsDir || entries[1].Size != 42 {
		t.Errorf("data.bin = %+v, want file of 42 bytes", entries[1])
	}
	if entries[1].ModTime.IsZero() {
		t.Error("expected modification time")
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	_, _, root := tempCatalog(t)
	got := ListDir(context.Background(), filepath.Join(root, "nope"))
	if got == nil || len(got) != 0 {
		t.Errorf("ListDir(missing) = %v, want empty non-nil", got)
	}
}

func TestStatistics(t *testing.T) {
	c, r, root := tempCatalog(t)
	write(t, filepath.Join(root, "sub", "ten.txt"), 10)
	write(t, filepath.Join(root, "sub", "twenty.txt"), 20)

	s := c.Statistics(context.Background(), r.Root())
	want := models.Stats{Files: 2, Folders: 1, Bytes: 30}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}
}

func TestStatisticsNested(t *testing.T) {
	c, r, root := tempCatalog(t)
	write(t, filepath.Join(root, "a", "b", "c", "deep.txt"), 5)
	write(t, filepath.Join(root, "top.txt"), 3)
	if err := os.Mkdir(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := c.Statistics(context.Background(), r.Root())
	want := models.Stats{Files: 2, Folders: 4, Bytes: 8}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}

	sub := c.Statistics(context.Background(), r.Resolve("a"))
	if sub != (models.Stats{Files: 1, Folders: 2, Bytes: 5}) {
		t.Errorf("sub stats = %+v", sub)
	}
}

func TestStatisticsCancelled(t *testing.T) {
	_, _, root := tempCatalog(t)
	write(t, filepath.Join(root, "x", "y.txt"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Walk(ctx, root); err == nil {
		t.Error("expected context error")
	}
}

type memCache struct {
	data        map[string]models.Stats
	invalidated []string
	beforePut   func()
}

func (m *memCache) GetStats(rel string) (models.Stats, bool, error) {
	s, ok := m.data[rel]
	return s, ok, nil
}

func (m *memCache) PutStats(rel string, s models.Stats) error {
	if hook := m.beforePut; hook != nil {
		m.beforePut = nil
		hook()
	}
	m.data[rel] = s
	return nil
}

func (m *memCache) InvalidateStats(rel string) error {
	m.invalidated = append(m.invalidated, rel)
	delete(m.data, rel)
	return nil
}

func (m *memCache) ClearStats() error {
	clear(m.data)
	return nil
}

func TestStatisticsUsesCache(t *testing.T) {
	cache := &memCache{data: map[string]models.Stats{}}
	c, r, root := tempCatalog(t, WithStatsCache(cache))
	write(t, filepath.Join(root, "one.txt"), 1)

	first := c.Statistics(context.Background(), r.Root())
	if first.Files != 1 {
		t.Fatalf("first = %+v", first)
	}
	write(t, filepath.Join(root, "two.txt"), 1)

	if cached := c.Statistics(context.Background(), r.Root()); cached != first {
		t.Errorf("expected cached result %+v, got %+v", first, cached)
	}
	c.Invalidate("")
	if fresh := c.Statistics(context.Background(), r.Root()); fresh.Files != 2 {
		t.Errorf("after invalidation = %+v, want 2 files", fresh)
	}
}

func TestStatisticsDropsResultOfRacedWalk(t *testing.T) {
	cache := &memCache{data: map[string]models.Stats{}}
	c, r, root := tempCatalog(t, WithStatsCache(cache))
	write(t, filepath.Join(root, "one.txt"), 1)

	// A mutation lands after the walk but before its result is stored.
	cache.beforePut = func() {
		write(t, filepath.Join(root, "two.txt"), 1)
		c.Invalidate("")
	}
	if stale := c.Statistics(context.Background(), r.Root()); stale.Files != 1 {
		t.Fatalf("first = %+v", stale)
	}
	if _, ok := cache.data[""]; ok {
		t.Fatal("raced walk result was cached")
	}
	if fresh := c.Statistics(context.Background(), r.Root()); fresh.Files != 2 {
		t.Errorf("after raced walk = %+v, want 2 files", fresh)
	}
}

func TestStatisticsSkipsCacheAfterInvalidation(t *testing.T) {
	cache := &memCache{data: map[string]models.Stats{}}
	c, _, root := tempCatalog(t, WithStatsCache(cache))
	write(t, filepath.Join(root, "one.txt"), 1)

	epoch := c.epoch.Load()
	c.Invalidate("")
	c.store("", models.Stats{Files: 1}, epoch)
	if _, ok := cache.data[""]; ok {
		t.Error("result older than an invalidation was cached")
	}
}
