package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/starford/filedeck/internal/fileops"
)

// tempPrefix marks the temp files of atomic uploads; their events are noise.
const tempPrefix = ".filedeck-tmp-"

// reconcileDelay debounces the cache reset after renames.
const reconcileDelay = 200 * time.Millisecond

// EventCallback is called for every external change to the managed tree.
type EventCallback func(kind fileops.EventKind, rel string)

// StatsInvalidator is the part of the stats cache the watcher drives.
type StatsInvalidator interface {
	InvalidateStats(rel string) error
	ClearStats() error
}

// Watcher follows changes made to the managed root outside of filedeck's
// own operations. Every change invalidates cached statistics; changes that
// filedeck did not make itself are also reported to the callback.
type Watcher struct {
	root   string
	cache  StatsInvalidator
	logger *slog.Logger
	cb     EventCallback
	quiet  time.Duration

	mu  sync.Mutex
	own map[string]time.Time
}

// NewWatcher creates a Watcher over root. cache and cb may be nil.
func NewWatcher(root string, cache StatsInvalidator, logger *slog.Logger, cb EventCallback) *Watcher {
	return &Watcher{
		root:   root,
		cache:  cache,
		logger: logger,
		cb:     cb,
		quiet:  2 * time.Second,
		own:    make(map[string]time.Time),
	}
}

// FileChanged marks paths changed through filedeck so the echo coming back
// from the filesystem is not reported a second time.
func (w *Watcher) FileChanged(ev fileops.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	until := time.Now().Add(w.quiet)
	w.own[ev.Path] = until
	if ev.From != "" {
		w.own[ev.From] = until
	}
}

func (w *Watcher) isOwn(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	hit := false
	for p, until := range w.own {
		if now.After(until) {
			delete(w.own, p)
			continue
		}
		if rel == p || strings.HasPrefix(rel, p+"/") {
			hit = true
		}
	}
	return hit
}

// Run watches the tree until ctx is cancelled. New directories are added to
// the watch list as they appear. Renames reset the whole statistics cache
// after a short debounce, since the destination may lie anywhere.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if w.cache != nil {
				if err := w.cache.ClearStats(); err != nil {
					w.logger.Warn("watcher: clear stats failed", slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), tempPrefix) {
				continue
			}
			rel, relErr := filepath.Rel(w.root, ev.Name)
			if relErr != nil || rel == "." || strings.HasPrefix(rel, "..") {
				continue
			}
			rel = filepath.ToSlash(rel)

			var kind fileops.EventKind
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = fileops.EventCreated
				if info, statErr := os.Lstat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
				}
			case ev.Op&fsnotify.Write != 0:
				kind = fileops.EventUpdated
			case ev.Op&fsnotify.Remove != 0:
				kind = fileops.EventDeleted
			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old path only; the new one arrives
				// as a Create if it stays inside a watched directory.
				kind = fileops.EventDeleted
				scheduleReconcile()
			default:
				continue
			}

			w.invalidate(rel)
			if w.isOwn(rel) {
				continue
			}
			w.logger.Debug("watcher: external change", slog.String("path", rel), slog.String("op", string(kind)))
			if w.cb != nil {
				w.cb(kind, rel)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) invalidate(rel string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.InvalidateStats(rel); err != nil {
		w.logger.Warn("watcher: invalidate failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
// Unreadable subdirectories are skipped.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	if err := fw.Add(root); err != nil {
		return err
	}
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == root || !d.IsDir() {
			return nil
		}
		_ = fw.Add(p)
		return nil
	})
}
