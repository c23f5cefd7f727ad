package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/filedeck/internal/fileops"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	base := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Storage.ManagedRoot = filepath.Join(base, "public_html")
	cfg.Storage.TrashRoot = filepath.Join(base, "delete_files")
	cfg.Index.Path = filepath.Join(base, "filedeck.db")
	return cfg
}

func TestBuildCore_CreatesRootsAndIndex(t *testing.T) {
	cfg := testConfig(t)
	c, err := buildCore(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("buildCore: %v", err)
	}
	defer c.Close()

	for _, dir := range []string{cfg.Storage.ManagedRoot, cfg.Storage.TrashRoot} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("root %s not created: %v", dir, err)
		}
	}
	if c.db == nil {
		t.Fatal("index should be open")
	}

	op := fileops.Actor{Name: "test", Authenticated: true}
	ctx := context.Background()
	if _, err := c.svc.CreateFile(ctx, op, "", "a.txt"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := c.svc.Delete(ctx, op, "", "a.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	items, err := c.svc.Trash(ctx, op)
	if err != nil {
		t.Fatalf("Trash: %v", err)
	}
	if len(items) != 1 || items[0].OriginalPath != "a.txt" {
		t.Errorf("trash = %+v", items)
	}
}

func TestBuildCore_IndexDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Index.Enabled = false
	c, err := buildCore(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("buildCore: %v", err)
	}
	defer c.Close()
	if c.db != nil {
		t.Error("index should not be opened")
	}
	if _, err := os.Stat(cfg.Index.Path); !os.IsNotExist(err) {
		t.Errorf("database file created: %v", err)
	}
}

func TestBuildCore_MissingRootWithoutCreate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.CreateDirs = false
	if _, err := buildCore(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil))); err == nil {
		t.Fatal("missing managed root should fail")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
