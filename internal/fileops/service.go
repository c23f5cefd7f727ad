// Package fileops orchestrates the user-facing file operations on top of the
// resolver, catalog and trash store. Every method takes the request's Actor
// explicitly and every filesystem path it touches comes from the resolver.
package fileops

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/filedeck/internal/apperr"
	"github.com/starford/filedeck/internal/catalog"
	"github.com/starford/filedeck/internal/pathresolver"
	"github.com/starford/filedeck/internal/trash"
)

// Actor is the caller of an operation.
type Actor struct {
	Name          string `json:"name"`
	Authenticated bool   `json:"authenticated"`
}

// Status classifies an Outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// Outcome codes. They are stable keys a presentation layer translates.
const (
	CodeNameEmpty       = "name_empty"
	CodeAlreadyExists   = "already_exists"
	CodeNotFound        = "not_found"
	CodeFolderCreated   = "folder_created"
	CodeFileCreated     = "file_created"
	CodeRenamed         = "renamed"
	CodeRenameSkipped   = "rename_skipped"
	CodeDeleted         = "deleted"
	CodeRestored        = "restored"
	CodeUploaded        = "uploaded"
	CodeNothingUploaded = "nothing_uploaded"
	CodeSaved           = "saved"
	CodeOperationFailed = "operation_failed"
)

// Outcome is the user-visible result of a mutation.
type Outcome struct {
	Status Status `json:"status"`
	Code   string `json:"code"`
	Path   string `json:"path,omitempty"`
}

func success(code, path string) Outcome { return Outcome{Status: StatusSuccess, Code: code, Path: path} }
func info(code string) Outcome          { return Outcome{Status: StatusInfo, Code: code} }

// EventKind names a change to the managed tree.
type EventKind string

const (
	EventCreated  EventKind = "file.created"
	EventUpdated  EventKind = "file.updated"
	EventDeleted  EventKind = "file.deleted"
	EventRenamed  EventKind = "file.renamed"
	EventRestored EventKind = "file.restored"
)

// Event describes one successful mutation. Paths are relative to the
// managed root; From is set for renames.
type Event struct {
	Kind  EventKind `json:"kind"`
	Path  string    `json:"path"`
	From  string    `json:"from,omitempty"`
	IsDir bool      `json:"is_dir"`
}

// Listener is notified after every successful mutation.
type Listener interface {
	FileChanged(ev Event)
}

// Recorder observes operation results, e.g. for metrics.
type Recorder interface {
	RecordOp(op string, status string)
	RecordUpload(bytes int64)
}

// Service implements the file operations.
type Service struct {
	resolver  *pathresolver.Resolver
	catalog   *catalog.Catalog
	trash     *trash.Store
	listeners []Listener
	recorder  Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithListener adds a change listener.
func WithListener(l Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, l)
	}
}

// WithRecorder sets the operation recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// New creates a Service.
func New(resolver *pathresolver.Resolver, cat *catalog.Catalog, tr *trash.Store, opts ...Option) *Service {
	s := &Service{resolver: resolver, catalog: cat, trash: tr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the path resolver the service confines paths with.
func (s *Service) Resolver() *pathresolver.Resolver { return s.resolver }

// AddListener registers l after construction. It must not be called
// concurrently with operations.
func (s *Service) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func authorize(a Actor) error {
	if !a.Authenticated {
		return apperr.ErrUnauthenticated
	}
	return nil
}

// changed invalidates cached statistics for the affected paths and notifies
// listeners.
func (s *Service) changed(ev Event) {
	s.catalog.Invalidate(ev.Path)
	if ev.From != "" {
		s.catalog.Invalidate(ev.From)
	}
	for _, l := range s.listeners {
		l.FileChanged(ev)
	}
}

// finish records the operation and turns errors into an error outcome.
// Sentinel errors keep their own code; anything else is an I/O failure whose
// detail only goes to the log.
func (s *Service) finish(ctx context.Context, op string, actor Actor, out Outcome, err error) (Outcome, error) {
	if err != nil {
		code := CodeFor(err)
		if code == CodeOperationFailed {
			slog.ErrorContext(ctx, "fileops: operation failed",
				slog.String("op", op),
				slog.String("actor", actor.Name),
				slog.String("error", err.Error()))
		}
		out = Outcome{Status: StatusError, Code: code}
	}
	if s.recorder != nil {
		s.recorder.RecordOp(op, string(out.Status))
	}
	return out, err
}

// CodeFor returns the outcome code for err.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperr.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, apperr.ErrUnsupportedFileType):
		return "unsupported_file_type"
	case errors.Is(err, apperr.ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, apperr.ErrCollisionExhausted):
		return "collision_exhausted"
	}
	return CodeOperationFailed
}

// leafName reduces an untrusted file name to its last path segment.
func leafName(raw string) string {
	clean := pathresolver.Normalize(raw)
	if i := strings.LastIndex(clean, "/"); i >= 0 {
		clean = clean[i+1:]
	}
	return clean
}

func exists(p pathresolver.Resolved) (fs.FileInfo, bool, error) {
	info, err := os.Lstat(p.String())
	if err == nil {
		return info, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	return nil, false, err
}

// regularFile stats p (following links) and maps anything that is not a
// regular file to ErrNotFound.
func regularFile(p pathresolver.Resolved) (fs.FileInfo, error) {
	info, err := os.Stat(p.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, apperr.ErrNotFound
	}
	return info, nil
}
