// Package testutil provides shared test helpers for setting up managed roots,
// trash directories and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/filedeck/internal/catalog"
	"github.com/starford/filedeck/internal/fileops"
	"github.com/starford/filedeck/internal/index"
	"github.com/starford/filedeck/internal/pathresolver"
	"github.com/starford/filedeck/internal/trash"
)

// Operator is an authenticated actor for tests.
var Operator = fileops.Actor{Name: "test", Authenticated: true}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "filedeck-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Env is a complete file operations stack over temporary directories.
type Env struct {
	Root  string // canonical managed root
	Trash string // canonical trash root
	DB    *index.DB
	Svc   *fileops.Service
}

// TestEnv creates a managed root and a sibling trash root, wires the SQLite
// stats cache and trash ledger, and returns the resulting service.
func TestEnv(t *testing.T, opts ...fileops.Option) *Env {
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
		t.Fatal(err)
	}
	db := TestDB(t)
	ts, err := trash.New(r, trashDir, trash.WithLedger(db))
	if err != nil {
		t.Fatal(err)
	}
	svc := fileops.New(r, catalog.New(r, catalog.WithStatsCache(db)), ts, opts...)
	return &Env{Root: r.Root().String(), Trash: ts.Root(), DB: db, Svc: svc}
}

// WriteFile creates rel (slash separated) under the managed root with content.
func (e *Env) WriteFile(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(e.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the content of rel under the managed root.
func (e *Env) ReadFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.Root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}
