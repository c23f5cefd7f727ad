package trash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/starford/filedeck/internal/apperr"
	"github.com/starford/filedeck/internal/pathresolver"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func tempStore(t *testing.T, opts ...Option) (*Store, *pathresolver.Resolver) {
	t.Helper()
	base := t.TempDir()
	managed := filepath.Join(base, "public_html")
	trashDir := filepath.Join(base, "delete_files")
	for _, d := range []string{managed, trashDir} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	r, err := pathresolver.New(managed)
	if err != nil {
		t.Fatalf("pathresolver.New: %v", err)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := New(r, trashDir, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, r
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSoftDeleteNaming(t *testing.T) {
	s, r := tempStore(t)
	writeFile(t, filepath.Join(r.Root().String(), "notes.txt"), "hello")

	e, err := s.SoftDelete(context.Background(), r.Resolve("notes.txt"))
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if e.Name != "notes.txt__20240309_140507" {
		t.Errorf("name = %q", e.Name)
	}
	if e.OriginalName != "notes.txt" {
		t.Errorf("original = %q", e.OriginalName)
	}
	if !e.DeletedAt.Equal(fixedNow) {
		t.Errorf("deleted at = %v, want %v", e.DeletedAt, fixedNow)
	}
	if _, err := os.Stat(filepath.Join(r.Root().String(), "notes.txt")); !os.IsNotExist(err) {
		t.Error("file should have left the managed root")
	}
	if got, _ := os.ReadFile(filepath.Join(s.Root(), e.Name)); string(got) != "hello" {
		t.Errorf("trashed content = %q", got)
	}
}

func TestSoftDeleteDirectoryMovesSubtree(t *testing.T) {
	s, r := tempStore(t)
	writeFile(t, filepath.Join(r.Root().String(), "proj", "src", "main.go"), "package main")

	e, err := s.SoftDelete(context.Background(), r.Resolve("proj"))
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if !e.IsDir {
		t.Error("expected directory entry")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), e.Name, "src", "main.go")); err != nil {
		t.Errorf("subtree not moved: %v", err)
	}
}

func TestSoftDeleteSameSecondCollision(t *testing.T) {
	s, r := tempStore(t)
	root := r.Root().String()
	writeFile(t, filepath.Join(root, "a", "readme.md"), "one")
	writeFile(t, filepath.Join(root, "b", "readme.md"), "two")

	first, err := s.SoftDelete(context.Background(), r.Resolve("a/readme.md"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SoftDelete(context.Background(), r.Resolve("b/readme.md"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Name == second.Name {
		t.Fatalf("both deletes produced %q", first.Name)
	}
	if second.Name != "readme.md__20240309_140508" {
		t.Errorf("second name = %q", second.Name)
	}
	if got, _ := os.ReadFile(filepath.Join(s.Root(), first.Name)); string(got) != "one" {
		t.Errorf("first trashed content = %q", got)
	}
}

func TestSoftDeleteRefusesRootAndMissing(t *testing.T) {
	s, r := tempStore(t)
	if _, err := s.SoftDelete(context.Background(), r.Root()); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Errorf("delete root err = %v", err)
	}
	if _, err := s.SoftDelete(context.Background(), r.Resolve("ghost.txt")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
	// An escape attempt resolves to the root and must not trash it.
	if _, err := s.SoftDelete(context.Background(), r.Resolve("../../")); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Errorf("delete escape err = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	s, r := tempStore(t)
	root := r.Root().String()
	writeFile(t, filepath.Join(root, "notes.txt"), "original bytes")

	e, err := s.SoftDelete(context.Background(), r.Resolve("notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	dest, err := s.Restore(context.Background(), e.Name)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Rel(dest) != "notes.txt" {
		t.Errorf("restored to %q", r.Rel(dest))
	}
	if got, _ := os.ReadFile(dest.String()); string(got) != "original bytes" {
		t.Errorf("restored content = %q", got)
	}
}

func TestRestoreCollision(t *testing.T) {
	s, r := tempStore(t)
	root := r.Root().String()
	writeFile(t, filepath.Join(root, "notes.txt"), "old")

	e, err := s.SoftDelete(context.Background(), r.Resolve("notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "notes.txt"), "recreated")
	writeFile(t, filepath.Join(root, "notes (1).txt"), "also taken")

	dest, err := s.Restore(context.Background(), e.Name)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rel(dest) != "notes (2).txt" {
		t.Errorf("restored to %q, want notes (2).txt", r.Rel(dest))
	}
	if got, _ := os.ReadFile(dest.String()); string(got) != "old" {
		t.Errorf("restored content = %q", got)
	}
	if got, _ := os.ReadFile(filepath.Join(root, "notes.txt")); string(got) != "recreated" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestRestoreDirectoryCollision(t *testing.T) {
	s, r := tempStore(t)
	root := r.Root().String()
	writeFile(t, filepath.Join(root, "v1.2", "a.txt"), "old")

	e, err := s.SoftDelete(context.Background(), r.Resolve("v1.2"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "v1.2"), 0o755); err != nil {
		t.Fatal(err)
	}

	dest, err := s.Restore(context.Background(), e.Name)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rel(dest) != "v1 (1).2" {
		t.Errorf("restored to %q, want v1 (1).2", r.Rel(dest))
	}
	if got, _ := os.ReadFile(filepath.Join(dest.String(), "a.txt")); string(got) != "old" {
		t.Errorf("restored content = %q", got)
	}
}

func TestRestoreRejectsTraversal(t *testing.T) {
	s, _ := tempStore(t)
	for _, name := range []string{"", "..", "../public_html", "/etc/passwd"} {
		if _, err := s.Restore(context.Background(), name); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Restore(%q) err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestCandidate(t *testing.T) {
	cases := []struct {
		name string
		n    int
		want string
	}{
		{"notes.txt", 0, "notes.txt"},
		{"notes.txt", 1, "notes (1).txt"},
		{"archive.tar.gz", 2, "archive.tar (2).gz"},
		{"Makefile", 3, "Makefile (3)"},
		{".bashrc", 1, ".bashrc (1)"},
		{"v1.2", 1, "v1 (1).2"},
	}
	for _, c := range cases {
		if got := candidate(c.name, c.n); got != c.want {
			t.Errorf("candidate(%q, %d) = %q, want %q", c.name, c.n, got, c.want)
		}
	}
}

func TestOriginalName(t *testing.T) {
	cases := map[string]string{
		"notes.txt__20240309_140507":          "notes.txt",
		"dir__20240309_140507":                "dir",
		"odd__2024_140507":                    "odd__2024_140507",
		"x__20240309_140507__20240309_140508": "x__20240309_140507",
		"__20240309_140507":                   "__20240309_140507",
	}
	for in, want := range cases {
		if got := OriginalName(in); got != want {
			t.Errorf("OriginalName(%q) = %q, want %q", in, got, want)
		}
	}
}

type memLedger struct {
	origins map[string]string
}

func (m *memLedger) RecordTrash(name, originalPath string, _ time.Time) error {
	m.origins[name] = originalPath
	return nil
}

func (m *memLedger) LookupTrash(names []string) (map[string]string, error) {
	out := map[string]string{}
	for _, n := range names {
		if p, ok := m.origins[n]; ok {
			out[n] = p
		}
	}
	return out, nil
}

func (m *memLedger) ForgetTrash(name string) error {
	delete(m.origins, name)
	return nil
}

func TestListWithLedger(t *testing.T) {
	ledger := &memLedger{origins: map[string]string{}}
	s, r := tempStore(t, WithLedger(ledger))
	writeFile(t, filepath.Join(r.Root().String(), "docs", "report.txt"), "x")

	e, err := s.SoftDelete(context.Background(), r.Resolve("docs/report.txt"))
	if err != nil {
		t.Fatal(err)
	}
	items := s.List(context.Background())
	if len(items) != 1 {
		t.Fatalf("len = %d", len(items))
	}
	if items[0].OriginalPath != "docs/report.txt" {
		t.Errorf("original path = %q", items[0].OriginalPath)
	}
	if !regexp.MustCompile(`^report\.txt__\d{8}_\d{6}$`).MatchString(items[0].Name) {
		t.Errorf("name = %q", items[0].Name)
	}

	if _, err := s.Restore(context.Background(), e.Name); err != nil {
		t.Fatal(err)
	}
	if len(ledger.origins) != 0 {
		t.Errorf("ledger not cleared: %v", ledger.origins)
	}
}

func TestNewRejectsOverlap(t *testing.T) {
	base := t.TempDir()
	r, err := pathresolver.New(base)
	if err != nil {
		t.Fatal(err)
	}
	inner := filepath.Join(base, "trash")
	if err := os.Mkdir(inner, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := New(r, inner); err == nil {
		t.Error("expected error for trash inside managed root")
	}
	if _, err := New(r, base); err == nil {
		t.Error("expected error for trash equal to managed root")
	}
}
