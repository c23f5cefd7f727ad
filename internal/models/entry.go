// Package models defines the domain types for filedeck.
package models

import "time"

// DirEntry is one item of a directory listing. It is produced fresh on every
// request and never cached.
type DirEntry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    uint64    `json:"size"` // 0 for directories
	ModTime time.Time `json:"modified_at"`
}

// TrashEntry is a soft-deleted item living flat in the trash root. Name keeps
// the "<original>__YYYYMMDD_HHMMSS" form.
type TrashEntry struct {
	DirEntry
	OriginalName string    `json:"original_name"`
	DeletedAt    time.Time `json:"deleted_at"`
	// OriginalPath is the managed-root relative location the item was deleted
	// from, when the trash ledger knows it.
	OriginalPath string `json:"original_path,omitempty"`
}

// Stats aggregates a recursive directory walk.
type Stats struct {
	Files   int    `json:"files"`
	Folders int    `json:"folders"`
	Bytes   uint64 `json:"total_size_bytes"`
}
