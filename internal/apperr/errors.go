// Package apperr holds the sentinel errors shared by the core packages and
// the transport layers that map them to responses.
package apperr

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrCollisionExhausted  = errors.New("no free name available")
	ErrUnauthenticated     = errors.New("unauthenticated")
	// ErrInvalidTarget is returned when a mutation would act on the managed
	// root itself, typically after a degraded path resolution.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrPathEscape marks a resolution that left the managed root. The
	// resolver degrades such paths to the root and never returns it.
	ErrPathEscape = errors.New("path escapes managed root")
)
