// Package trash implements soft delete into a flat trash directory and
// collision-safe restore back into the managed root.
//
// A trashed item is renamed to "<base>__YYYYMMDD_HHMMSS". Restore strips that
// suffix and, when the original name is taken, inserts " (1)", " (2)", ...
// before the extension. Both directions use renames that never replace an
// existing entry.
package trash

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/filedeck/internal/apperr"
	"github.com/starford/filedeck/internal/catalog"
	"github.com/starford/filedeck/internal/fsutil"
	"github.com/starford/filedeck/internal/models"
	"github.com/starford/filedeck/internal/pathresolver"
)

// StampLayout is the time layout of the trash suffix.
const StampLayout = "20060102_150405"

// MaxRestoreAttempts bounds the " (n)" search on restore.
const MaxRestoreAttempts = 1_000_000

// maxStampBumps bounds how far a delete advances the stamp to find a free
// trash name when several identically named items are deleted in the same
// second.
const maxStampBumps = 3600

var suffixRe = regexp.MustCompile(`__\d{8}_\d{6}$`)

// Ledger remembers where trashed items came from. The trash directory stays
// authoritative; ledger errors are logged and never fail a move.
type Ledger interface {
	RecordTrash(name, originalPath string, deletedAt time.Time) error
	LookupTrash(names []string) (map[string]string, error)
	ForgetTrash(name string) error
}

// Store moves items between the managed root and the trash root.
type Store struct {
	resolver *pathresolver.Resolver
	root     string
	now      func() time.Time
	ledger   Ledger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for trash stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLedger records original locations of trashed items.
func WithLedger(l Ledger) Option {
	return func(s *Store) {
		s.ledger = l
	}
}

// New creates a Store using trashRoot, which must exist and must be neither
// inside the managed root nor contain it.
func New(resolver *pathresolver.Resolver, trashRoot string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(trashRoot)
	if err != nil {
		return nil, fmt.Errorf("trash: resolve root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("trash: canonicalize root: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("trash: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("trash: root is not a directory: %s", real)
	}
	managed := resolver.Root().String()
	if fsutil.Within(real, managed) || fsutil.Within(managed, real) {
		return nil, fmt.Errorf("trash: root %s overlaps managed root %s", real, managed)
	}

	s := &Store{resolver: resolver, root: real, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute trash directory.
func (s *Store) Root() string { return s.root }

// SoftDelete moves target into the trash. Directories move with their whole
// subtree in a single rename; across volumes the move falls back to a
// non-atomic copy and remove.
func (s *Store) SoftDelete(_ context.Context, target pathresolver.Resolved) (models.TrashEntry, error) {
	if s.resolver.IsRoot(target) {
		return models.TrashEntry{}, apperr.ErrInvalidTarget
	}
	if _, err := os.Lstat(target.String()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.TrashEntry{}, apperr.ErrNotFound
		}
		return models.TrashEntry{}, fmt.Errorf("trash: stat %s: %w", target, err)
	}

	base := filepath.Base(target.String())
	stamp := s.now()
	for i := 0; i < maxStampBumps; i++ {
		at := stamp.Add(time.Duration(i) * time.Second)
		name := base + "__" + at.Format(StampLayout)
		dest := filepath.Join(s.root, name)

		err := fsutil.Move(target.String(), dest)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if errors.Is(err, fsutil.ErrCrossDevice) {
			slog.Warn("trash: moved across volumes with copy fallback",
				slog.String("source", target.String()),
				slog.String("dest", dest))
		} else if err != nil {
			return models.TrashEntry{}, fmt.Errorf("trash: move %s: %w", base, err)
		}

		rel := s.resolver.Rel(target)
		if s.ledger != nil {
			if lerr := s.ledger.RecordTrash(name, rel, at); lerr != nil {
				slog.Warn("trash: ledger record failed", slog.String("name", name), slog.String("error", lerr.Error()))
			}
		}
		return s.entry(name, rel), nil
	}
	return models.TrashEntry{}, fmt.Errorf("trash: no free name for %s: %w", base, apperr.ErrCollisionExhausted)
}

// Restore moves a trash entry back into the managed root under its original
// base name, disambiguated if that name is taken.
func (s *Store) Restore(_ context.Context, name string) (pathresolver.Resolved, error) {
	clean := path.Base(pathresolver.Normalize(name))
	if clean == "" || clean == "." || clean == "/" {
		return "", apperr.ErrNotFound
	}
	src := filepath.Join(s.root, clean)
	if _, err := os.Lstat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", fmt.Errorf("trash: stat %s: %w", clean, err)
	}

	original := OriginalName(clean)
	for n := 0; n <= MaxRestoreAttempts; n++ {
		dest := s.resolver.Resolve(candidate(original, n))
		if s.resolver.IsRoot(dest) {
			// Degraded resolution; treat the name as unavailable.
			continue
		}
		err := fsutil.Move(src, dest.String())
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if errors.Is(err, fsutil.ErrCrossDevice) {
			slog.Warn("trash: restored across volumes with copy fallback", slog.String("name", clean))
		} else if err != nil {
			return "", fmt.Errorf("trash: restore %s: %w", clean, err)
		}
		if s.ledger != nil {
			if lerr := s.ledger.ForgetTrash(clean); lerr != nil {
				slog.Warn("trash: ledger forget failed", slog.String("name", clean), slog.String("error", lerr.Error()))
			}
		}
		return dest, nil
	}
	return "", fmt.Errorf("trash: restore %s: %w", clean, apperr.ErrCollisionExhausted)
}

// List returns the live content of the trash directory.
func (s *Store) List(ctx context.Context) []models.TrashEntry {
	des := catalog.ListDir(ctx, s.root)
	var origins map[string]string
	if s.ledger != nil && len(des) > 0 {
		names := make([]string, len(des))
		for i, d := range des {
			names[i] = d.Name
		}
		var err error
		if origins, err = s.ledger.LookupTrash(names); err != nil {
			slog.Warn("trash: ledger lookup failed", slog.String("error", err.Error()))
		}
	}
	out := make([]models.TrashEntry, len(des))
	for i, d := range des {
		out[i] = trashEntry(d, origins[d.Name])
	}
	return out
}

// OriginalName strips the "__YYYYMMDD_HHMMSS" suffix from a trash name.
func OriginalName(name string) string {
	if orig := suffixRe.ReplaceAllString(name, ""); orig != "" {
		return orig
	}
	return name
}

func (s *Store) entry(name, originalPath string) models.TrashEntry {
	d := models.DirEntry{Name: name}
	if info, err := os.Lstat(filepath.Join(s.root, name)); err == nil {
		d.IsDir = info.IsDir()
		d.ModTime = info.ModTime()
		if !d.IsDir && info.Size() > 0 {
			d.Size = uint64(info.Size())
		}
	}
	return trashEntry(d, originalPath)
}

func trashEntry(d models.DirEntry, originalPath string) models.TrashEntry {
	e := models.TrashEntry{
		DirEntry:     d,
		OriginalName: OriginalName(d.Name),
		OriginalPath: originalPath,
	}
	if m := suffixRe.FindString(d.Name); m != "" {
		if at, err := time.ParseInLocation(StampLayout, m[2:], time.Local); err == nil {
			e.DeletedAt = at
		}
	}
	return e
}

// candidate returns the n-th restore name: the original for n == 0, else
// "<stem> (n)<ext>" for files and directories alike ("v1.2" becomes
// "v1 (1).2"). Names without a stem, like ".bashrc", get the suffix at the end.
func candidate(original string, n int) string {
	if n == 0 {
		return original
	}
	suffix := " (" + strconv.Itoa(n) + ")"
	ext := filepath.Ext(original)
	if ext == "" || ext == original {
		return original + suffix
	}
	return strings.TrimSuffix(original, ext) + suffix + ext
}
