package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/filedeck/internal/fileops"
	"github.com/starford/filedeck/internal/models"
)

const (
	maxNameLen = 255
	maxPathLen = 4096
)

// CreateRequest is the request body for creating a folder or an empty file.
type CreateRequest struct {
	Dir  string `json:"dir" example:"docs"`
	Name string `json:"name" example:"notes.txt"`
}

// Validate validates the request.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Dir, validation.Length(0, maxPathLen)),
		validation.Field(&r.Name, validation.Length(0, maxNameLen)),
	)
}

// RenameRequest is the request body for renaming an entry.
type RenameRequest struct {
	Dir string `json:"dir" example:"docs"`
	Old string `json:"old" example:"draft.txt"`
	New string `json:"new" example:"final.txt"`
}

// Validate validates the request.
func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Dir, validation.Length(0, maxPathLen)),
		validation.Field(&r.Old, validation.Length(0, maxNameLen)),
		validation.Field(&r.New, validation.Length(0, maxNameLen)),
	)
}

// DeleteRequest is the request body for moving an entry to the trash.
type DeleteRequest struct {
	Dir  string `json:"dir" example:"docs"`
	Name string `json:"name" example:"old.txt"`
}

// Validate validates the request.
func (r DeleteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Dir, validation.Length(0, maxPathLen)),
		validation.Field(&r.Name, validation.Length(0, maxNameLen)),
	)
}

// RestoreRequest is the request body for restoring a trash entry.
type RestoreRequest struct {
	Name string `json:"name" example:"old.txt__20240309_140507" validate:"required"`
}

// Validate validates the request.
func (r RestoreRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLen)),
	)
}

// EditRequest is the request body for saving an edited file.
type EditRequest struct {
	Dir     string `json:"dir" example:"site"`
	File    string `json:"file" example:"index.html" validate:"required"`
	Content string `json:"content" example:"<h1>Hello</h1>"`
}

// Validate validates the request.
func (r EditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Dir, validation.Length(0, maxPathLen)),
		validation.Field(&r.File, validation.Required, validation.Length(1, maxNameLen)),
	)
}

// Outcome is the result of a mutation (aliased from the domain layer).
type Outcome = fileops.Outcome

// Listing is a browsed directory (aliased from the domain layer).
type Listing = fileops.Listing

// UploadResponse reports which uploaded files were written.
type UploadResponse = fileops.UploadResult

// TrashResponse wraps the trash listing.
type TrashResponse struct {
	Items []models.TrashEntry `json:"items" validate:"required"`
}
