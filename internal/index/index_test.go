package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/filedeck/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "filedeck-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM dir_stats`).Scan(&count); err != nil {
		t.Fatalf("dir_stats table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM trash_ledger`).Scan(&count); err != nil {
		t.Fatalf("trash_ledger table missing: %v", err)
	}
}

func TestPutAndGetStats(t *testing.T) {
	db := testDB(t)
	want := models.Stats{Files: 3, Folders: 2, Bytes: 1 << 40}
	if err := db.PutStats("docs", want); err != nil {
		t.Fatalf("PutStats: %v", err)
	}
	got, ok, err := db.GetStats("docs")
	if err != nil || !ok {
		t.Fatalf("GetStats = %v, %v", ok, err)
	}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	if _, ok, err := db.GetStats("missing"); err != nil || ok {
		t.Errorf("missing = %v, %v", ok, err)
	}
}

func TestInvalidateStatsAncestorsAndDescendants(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"", "a", "a/b", "a/b/c", "a/b_x", "a/bc", "z"} {
		if err := db.PutStats(p, models.Stats{Files: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.InvalidateStats("a/b"); err != nil {
		t.Fatalf("InvalidateStats: %v", err)
	}

	gone := []string{"", "a", "a/b", "a/b/c"}
	kept := []string{"a/b_x", "a/bc", "z"}
	for _, p := range gone {
		if _, ok, _ := db.GetStats(p); ok {
			t.Errorf("%q should be invalidated", p)
		}
	}
	for _, p := range kept {
		if _, ok, _ := db.GetStats(p); !ok {
			t.Errorf("%q should be kept", p)
		}
	}

	if err := db.InvalidateStats(""); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetStats("z"); ok {
		t.Error("invalidating the root should clear everything")
	}
}

func TestAncestors(t *testing.T) {
	got := ancestors("a/b/c")
	want := []string{"a/b/c", "a/b", "a", ""}
	if len(got) != len(want) {
		t.Fatalf("ancestors = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ancestors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTrashLedger(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	if err := db.RecordTrash("a.txt__20240101_120000", "docs/a.txt", now); err != nil {
		t.Fatalf("RecordTrash: %v", err)
	}
	if err := db.RecordTrash("b__20240101_120000", "b", now); err != nil {
		t.Fatal(err)
	}

	got, err := db.LookupTrash([]string{"a.txt__20240101_120000", "unknown"})
	if err != nil {
		t.Fatalf("LookupTrash: %v", err)
	}
	if len(got) != 1 || got["a.txt__20240101_120000"] != "docs/a.txt" {
		t.Errorf("lookup = %v", got)
	}

	if err := db.ForgetTrash("a.txt__20240101_120000"); err != nil {
		t.Fatalf("ForgetTrash: %v", err)
	}
	names, err := db.TrashNames()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := names["a.txt__20240101_120000"]; ok || len(names) != 1 {
		t.Errorf("names = %v", names)
	}

	if empty, err := db.LookupTrash(nil); err != nil || len(empty) != 0 {
		t.Errorf("empty lookup = %v, %v", empty, err)
	}
}

func TestSyncPrunesLedgerAndClearsStats(t *testing.T) {
	db := testDB(t)
	trashRoot := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	if err := os.WriteFile(filepath.Join(trashRoot, "kept__20240101_120000"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_ = db.RecordTrash("kept__20240101_120000", "kept", time.Now())
	_ = db.RecordTrash("gone__20240101_120000", "gone", time.Now())
	_ = db.PutStats("", models.Stats{Files: 9})

	if err := Sync(db, trashRoot, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	names, _ := db.TrashNames()
	if len(names) != 1 {
		t.Errorf("names = %v", names)
	}
	if _, ok, _ := db.GetStats(""); ok {
		t.Error("stats cache should be cleared")
	}
}
