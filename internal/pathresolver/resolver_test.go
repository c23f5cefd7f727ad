package pathresolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func inside(r *Resolver, p Resolved) bool {
	return r.IsRoot(p) || strings.HasPrefix(string(p), string(r.Root())+string(os.PathSeparator))
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"/":                "",
		"a//b":             "a/b",
		"a/./b":            "a/b",
		"a/b/..":           "a",
		"../../etc/passwd": "etc/passwd",
		`a\b\..\c`:         "a/c",
		"/a/b/":            "a/b",
		"..":               "",
		"a/../../b":        "b",
		"./././":           "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"a//b/../c", `..\..\x`, "./a/./b/", "x/y/z/../../..", "a/.../b", "  /spaces here/ "}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestResolveStaysInsideRoot(t *testing.T) {
	r := tempResolver(t)
	cases := []string{
		"../../etc/passwd",
		"..",
		"/etc/shadow",
		`..\..\windows`,
		"a/../../../..",
		"./../.",
		"a//..//..//b",
	}
	for _, c := range cases {
		got := r.Resolve(c)
		if !inside(r, got) {
			t.Errorf("Resolve(%q) = %q escapes root %q", c, got, r.Root())
		}
	}
	if got := r.Resolve("../../etc/passwd"); string(got) == "/etc/passwd" {
		t.Error("traversal reached /etc/passwd")
	}
}

func TestResolveNonExistentIsLexical(t *testing.T) {
	r := tempResolver(t)
	if err := os.Mkdir(filepath.Join(string(r.Root()), "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	got := r.Resolve("docs/new/file.txt")
	want := filepath.Join(string(r.Root()), "docs", "new", "file.txt")
	if string(got) != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveSymlinkEscapeDegradesToRoot(t *testing.T) {
	r := tempResolver(t)
	outside := t.TempDir()
	link := filepath.Join(string(r.Root()), "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if got := r.Resolve("escape"); !r.IsRoot(got) {
		t.Errorf("Resolve(escape) = %q, want root", got)
	}
	if got := r.Resolve("escape/child.txt"); !r.IsRoot(got) {
		t.Errorf("Resolve(escape/child.txt) = %q, want root", got)
	}
}

func TestResolveDanglingSymlinkDegradesToRoot(t *testing.T) {
	r := tempResolver(t)
	target := filepath.Join(t.TempDir(), "not-yet")
	if err := os.Symlink(target, filepath.Join(string(r.Root()), "dangling")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if got := r.Resolve("dangling"); !r.IsRoot(got) {
		t.Errorf("Resolve(dangling) = %q, want root", got)
	}
}

func TestResolveSymlinkInsideRoot(t *testing.T) {
	r := tempResolver(t)
	real := filepath.Join(string(r.Root()), "real")
	if err := os.Mkdir(real, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(real, filepath.Join(string(r.Root()), "alias")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if got := r.Resolve("alias/x.txt"); string(got) != filepath.Join(real, "x.txt") {
		t.Errorf("Resolve(alias/x.txt) = %q", got)
	}
}

func TestJoinAndRel(t *testing.T) {
	r := tempResolver(t)
	if err := os.MkdirAll(filepath.Join(string(r.Root()), "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	dir := r.Resolve("a/b")
	if rel := r.Rel(dir); rel != "a/b" {
		t.Errorf("Rel = %q, want a/b", rel)
	}
	if rel := r.Rel(r.Join(dir, "c.txt")); rel != "a/b/c.txt" {
		t.Errorf("Join rel = %q", rel)
	}
	if rel := r.Rel(r.Join(dir, "../../..")); rel != "" {
		t.Errorf("Join above root rel = %q, want root", rel)
	}
	if rel := r.Rel(r.Root()); rel != "" {
		t.Errorf("Rel(root) = %q", rel)
	}
}

func TestNewRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f); err == nil {
		t.Error("expected error when root is a file")
	}
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}
