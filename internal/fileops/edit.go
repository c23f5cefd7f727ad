package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/filedeck/internal/apperr"
	"github.com/starford/filedeck/internal/checksum"
	"github.com/starford/filedeck/internal/fsutil"
	"github.com/starford/filedeck/internal/pathresolver"
)

var editableExt = map[string]struct{}{
	"php": {}, "html": {}, "htm": {}, "css": {}, "js": {}, "ts": {}, "jsx": {}, "tsx": {},
	"py": {}, "rb": {}, "go": {}, "java": {}, "c": {}, "cpp": {}, "cs": {}, "sh": {},
	"md": {}, "txt": {}, "json": {}, "xml": {}, "yml": {}, "yaml": {}, "ini": {}, "conf": {}, "sql": {},
}

// Editable reports whether name has an extension the editor accepts.
func Editable(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := editableExt[ext]
	return ok
}

// Document is a file opened for editing.
type Document struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Content  string    `json:"content"`
	Modified time.Time `json:"modified_at"`
	// Checksum is the hex SHA-256 of Content as read.
	Checksum string `json:"checksum"`
}

// editTarget checks the extension of the requested name before touching the
// filesystem, then again on the resolved path so a link cannot smuggle a
// non-editable file in.
func (s *Service) editTarget(dir, name string) (pathresolver.Resolved, error) {
	if !Editable(leafName(name)) {
		return "", apperr.ErrUnsupportedFileType
	}
	target := s.resolver.Join(s.resolver.Resolve(dir), name)
	if !Editable(filepath.Base(target.String())) {
		return "", apperr.ErrUnsupportedFileType
	}
	return target, nil
}

// ReadForEdit returns the content of an existing editable file.
func (s *Service) ReadForEdit(_ context.Context, actor Actor, dir, name string) (*Document, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	target, err := s.editTarget(dir, name)
	if err != nil {
		return nil, err
	}
	info, err := regularFile(target)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target.String())
	if err != nil {
		return nil, fmt.Errorf("fileops: read %s: %w", name, err)
	}
	return &Document{
		Path:     s.resolver.Rel(target),
		Name:     filepath.Base(target.String()),
		Content:  string(data),
		Modified: info.ModTime(),
		Checksum: checksum.Sum(data),
	}, nil
}

// WriteFromEdit replaces the content of an existing editable file. The file
// is truncated and rewritten in place under an exclusive lock, then synced.
func (s *Service) WriteFromEdit(ctx context.Context, actor Actor, dir, name, content string) (Outcome, error) {
	out, err := s.writeFromEdit(actor, dir, name, content)
	return s.finish(ctx, "edit", actor, out, err)
}

func (s *Service) writeFromEdit(actor Actor, dir, name, content string) (Outcome, error) {
	if err := authorize(actor); err != nil {
		return Outcome{}, err
	}
	target, err := s.editTarget(dir, name)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := regularFile(target); err != nil {
		return Outcome{}, err
	}

	f, err := os.OpenFile(target.String(), os.O_WRONLY, 0)
	if err != nil {
		return Outcome{}, fmt.Errorf("fileops: open %s: %w", name, err)
	}
	defer f.Close()

	unlock, err := fsutil.LockExclusive(f)
	if err != nil {
		return Outcome{}, err
	}
	defer func() { _ = unlock() }()

	if err := f.Truncate(0); err != nil {
		return Outcome{}, fmt.Errorf("fileops: truncate %s: %w", name, err)
	}
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		return Outcome{}, fmt.Errorf("fileops: write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return Outcome{}, fmt.Errorf("fileops: fsync %s: %w", name, err)
	}

	rel := s.resolver.Rel(target)
	s.changed(Event{Kind: EventUpdated, Path: rel})
	return success(CodeSaved, rel), nil
}
