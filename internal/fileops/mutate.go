package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/filedeck/internal/apperr"
	"github.com/starford/filedeck/internal/fsutil"
)

// CreateFolder creates name inside dir. An empty name or an existing target
// is an info no-op. The parent must already exist.
func (s *Service) CreateFolder(ctx context.Context, actor Actor, dir, name string) (Outcome, error) {
	out, err := s.create(actor, dir, name, true)
	return s.finish(ctx, "create_folder", actor, out, err)
}

// CreateFile creates an empty file name inside dir with the same rules as
// CreateFolder. An existing file is never truncated.
func (s *Service) CreateFile(ctx context.Context, actor Actor, dir, name string) (Outcome, error) {
	out, err := s.create(actor, dir, name, false)
	return s.finish(ctx, "create_file", actor, out, err)
}

func (s *Service) create(actor Actor, dir, name string, folder bool) (Outcome, error) {
	if err := authorize(actor); err != nil {
		return Outcome{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return info(CodeNameEmpty), nil
	}
	target := s.resolver.Join(s.resolver.Resolve(dir), name)
	if _, ok, err := exists(target); err != nil {
		return Outcome{}, fmt.Errorf("fileops: stat %s: %w", name, err)
	} else if ok {
		return info(CodeAlreadyExists), nil
	}

	var err error
	if folder {
		err = os.Mkdir(target.String(), 0o755)
	} else {
		var f *os.File
		f, err = os.OpenFile(target.String(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			err = f.Close()
		}
	}
	if errors.Is(err, fs.ErrExist) {
		return info(CodeAlreadyExists), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("fileops: create %s: %w", name, err)
	}

	rel := s.resolver.Rel(target)
	s.changed(Event{Kind: EventCreated, Path: rel, IsDir: folder})
	if folder {
		return success(CodeFolderCreated, rel), nil
	}
	return success(CodeFileCreated, rel), nil
}

// Rename renames oldName to newName inside dir. It is a no-op when either
// name is empty, both resolve to the same path, the source is missing or the
// destination exists. It never overwrites.
func (s *Service) Rename(ctx context.Context, actor Actor, dir, oldName, newName string) (Outcome, error) {
	out, err := s.rename(actor, dir, oldName, newName)
	return s.finish(ctx, "rename", actor, out, err)
}

func (s *Service) rename(actor Actor, dir, oldName, newName string) (Outcome, error) {
	if err := authorize(actor); err != nil {
		return Outcome{}, err
	}
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return info(CodeRenameSkipped), nil
	}
	base := s.resolver.Resolve(dir)
	src := s.resolver.Join(base, oldName)
	dst := s.resolver.Join(base, newName)
	if src == dst {
		return info(CodeRenameSkipped), nil
	}
	if s.resolver.IsRoot(src) || fsutil.Within(dst.String(), src.String()) {
		return Outcome{}, apperr.ErrInvalidTarget
	}

	srcInfo, ok, err := exists(src)
	if err != nil {
		return Outcome{}, fmt.Errorf("fileops: stat %s: %w", oldName, err)
	}
	if !ok {
		return info(CodeNotFound), nil
	}
	if _, ok, err := exists(dst); err != nil {
		return Outcome{}, fmt.Errorf("fileops: stat %s: %w", newName, err)
	} else if ok {
		return info(CodeAlreadyExists), nil
	}

	err = fsutil.Move(src.String(), dst.String())
	switch {
	case errors.Is(err, fs.ErrExist):
		return info(CodeAlreadyExists), nil
	case errors.Is(err, fsutil.ErrCrossDevice):
		slog.Warn("fileops: rename crossed volumes, copied instead", slog.String("from", src.String()), slog.String("to", dst.String()))
	case err != nil:
		return Outcome{}, fmt.Errorf("fileops: rename %s: %w", oldName, err)
	}

	rel := s.resolver.Rel(dst)
	s.changed(Event{Kind: EventRenamed, Path: rel, From: s.resolver.Rel(src), IsDir: srcInfo.IsDir()})
	return success(CodeRenamed, rel), nil
}

// Delete moves name inside dir to the trash. A missing target is an info
// no-op; the managed root itself is never deleted.
func (s *Service) Delete(ctx context.Context, actor Actor, dir, name string) (Outcome, error) {
	out, err := s.delete(ctx, actor, dir, name)
	return s.finish(ctx, "delete", actor, out, err)
}

func (s *Service) delete(ctx context.Context, actor Actor, dir, name string) (Outcome, error) {
	if err := authorize(actor); err != nil {
		return Outcome{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return info(CodeNameEmpty), nil
	}
	target := s.resolver.Join(s.resolver.Resolve(dir), name)
	rel := s.resolver.Rel(target)

	entry, err := s.trash.SoftDelete(ctx, target)
	if errors.Is(err, apperr.ErrNotFound) {
		return info(CodeNotFound), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	s.changed(Event{Kind: EventDeleted, Path: rel, IsDir: entry.IsDir})
	return success(CodeDeleted, rel), nil
}

// Restore moves a trash entry back into the managed root. The returned
// outcome carries the path it was restored to, which differs from the
// original name when that name was taken.
func (s *Service) Restore(ctx context.Context, actor Actor, name string) (Outcome, error) {
	out, err := s.restore(ctx, actor, name)
	return s.finish(ctx, "restore", actor, out, err)
}

func (s *Service) restore(ctx context.Context, actor Actor, name string) (Outcome, error) {
	if err := authorize(actor); err != nil {
		return Outcome{}, err
	}
	dest, err := s.trash.Restore(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return info(CodeNotFound), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	rel := s.resolver.Rel(dest)
	ev := Event{Kind: EventRestored, Path: rel}
	if fi, ok, _ := exists(dest); ok {
		ev.IsDir = fi.IsDir()
	}
	s.changed(ev)
	return success(CodeRestored, rel), nil
}

// Incoming is one file of an upload batch. OK is false when the transfer of
// that file failed; such files are skipped.
type Incoming struct {
	Filename string
	Content  io.Reader
	OK       bool
}

// UploadResult reports which files of a batch were written.
type UploadResult struct {
	Outcome
	Written []string `json:"written"`
	Skipped []string `json:"skipped"`
}

// Upload writes each incoming file into dir under the last segment of its
// client-supplied name, replacing an existing file of that name. A failing
// file is skipped and never aborts the batch.
func (s *Service) Upload(ctx context.Context, actor Actor, dir string, files []Incoming) (UploadResult, error) {
	res := UploadResult{Written: []string{}, Skipped: []string{}}
	if err := authorize(actor); err != nil {
		res.Outcome, err = s.finish(ctx, "upload", actor, Outcome{}, err)
		return res, err
	}
	base := s.resolver.Resolve(dir)
	for _, in := range files {
		leaf := leafName(in.Filename)
		if !in.OK || in.Content == nil || leaf == "" {
			res.Skipped = append(res.Skipped, in.Filename)
			continue
		}
		target := s.resolver.Join(base, leaf)
		if s.resolver.IsRoot(target) {
			res.Skipped = append(res.Skipped, in.Filename)
			continue
		}
		_, existed, _ := exists(target)
		n, err := fsutil.WriteAtomic(target.String(), in.Content, 0o644)
		if err != nil {
			slog.WarnContext(ctx, "fileops: upload skipped",
				slog.String("file", leaf),
				slog.String("error", err.Error()))
			res.Skipped = append(res.Skipped, in.Filename)
			continue
		}
		if s.recorder != nil {
			s.recorder.RecordUpload(n)
		}
		rel := s.resolver.Rel(target)
		kind := EventCreated
		if existed {
			kind = EventUpdated
		}
		s.changed(Event{Kind: kind, Path: rel})
		res.Written = append(res.Written, rel)
	}

	out := success(CodeUploaded, s.resolver.Rel(base))
	if len(res.Written) == 0 {
		out = info(CodeNothingUploaded)
	}
	res.Outcome, _ = s.finish(ctx, "upload", actor, out, nil)
	return res, nil
}
