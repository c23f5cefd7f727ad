package api

import (
	"encoding/json"
	"net/http"

	"github.com/starford/filedeck/internal/checksum"
	"github.com/starford/filedeck/internal/fileops"
)

// maxJSONBody bounds JSON request bodies, edited file content included.
const maxJSONBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc       *fileops.Service
	maxUpload int64
}

// NewHandler creates a new Handler.
func NewHandler(svc *fileops.Service, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

type validatable interface {
	Validate() error
}

// decodeJSON reads a JSON body into v and validates it, writing a 400 on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// Browse handles GET /api/files.
//
//	@Summary		List a directory with its subtree statistics
//	@Tags			files
//	@Produce		json
//	@Param			dir	query		string	false	"Directory relative to the managed root"
//	@Success		200	{object}	Listing
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Browse(r.Context(), ActorFrom(r.Context()), r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, "browse", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// CreateFolder handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRequest	true	"Folder to create"
//	@Success		200		{object}	Outcome
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateFolder(r.Context(), ActorFrom(r.Context()), req.Dir, req.Name)
	writeOutcome(w, out, err)
}

// CreateFile handles POST /api/files.
//
//	@Summary		Create an empty file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRequest	true	"File to create"
//	@Success		200		{object}	Outcome
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.CreateFile(r.Context(), ActorFrom(r.Context()), req.Dir, req.Name)
	writeOutcome(w, out, err)
}

// Rename handles POST /api/rename.
//
//	@Summary		Rename an entry without overwriting
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Rename"
//	@Success		200		{object}	Outcome
//	@Security		BearerAuth
//	@Router			/rename [post]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Rename(r.Context(), ActorFrom(r.Context()), req.Dir, req.Old, req.New)
	writeOutcome(w, out, err)
}

// Delete handles POST /api/delete.
//
//	@Summary		Move an entry to the trash
//	@Tags			trash
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteRequest	true	"Entry to delete"
//	@Success		200		{object}	Outcome
//	@Security		BearerAuth
//	@Router			/delete [post]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Delete(r.Context(), ActorFrom(r.Context()), req.Dir, req.Name)
	writeOutcome(w, out, err)
}

// Trash handles GET /api/trash.
//
//	@Summary		List the trash
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	TrashResponse
//	@Security		BearerAuth
//	@Router			/trash [get]
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Trash(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		writeError(w, "trash", err)
		return
	}
	writeJSON(w, http.StatusOK, TrashResponse{Items: items})
}

// Restore handles POST /api/trash/restore.
//
//	@Summary		Restore a trash entry
//	@Tags			trash
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RestoreRequest	true	"Trash entry"
//	@Success		200		{object}	Outcome
//	@Security		BearerAuth
//	@Router			/trash/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.Restore(r.Context(), ActorFrom(r.Context()), req.Name)
	writeOutcome(w, out, err)
}

// ReadForEdit handles GET /api/edit.
//
//	@Summary		Open a text file for editing
//	@Tags			edit
//	@Produce		json
//	@Param			dir		query		string	false	"Directory"
//	@Param			file	query		string	true	"File name"
//	@Success		200		{object}	fileops.Document
//	@Success		304		"Content unchanged"
//	@Failure		404		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edit [get]
func (h *Handler) ReadForEdit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("file") == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'file' is required"))
		return
	}
	doc, err := h.svc.ReadForEdit(r.Context(), ActorFrom(r.Context()), q.Get("dir"), q.Get("file"))
	if err != nil {
		writeError(w, "read for edit", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	if checksum.MatchesNone(r.Header.Get("If-None-Match"), doc.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// WriteFromEdit handles PUT /api/edit.
//
//	@Summary		Save an edited text file
//	@Tags			edit
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EditRequest	true	"Edited content"
//	@Success		200		{object}	Outcome
//	@Failure		404		{object}	Outcome
//	@Failure		415		{object}	Outcome
//	@Security		BearerAuth
//	@Router			/edit [put]
func (h *Handler) WriteFromEdit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.WriteFromEdit(r.Context(), ActorFrom(r.Context()), req.Dir, req.File, req.Content)
	writeOutcome(w, out, err)
}

// Preview handles GET /api/preview.
//
//	@Summary		Inspect a file for the preview pane
//	@Tags			files
//	@Produce		json
//	@Param			dir		query		string	false	"Directory"
//	@Param			file	query		string	true	"File name"
//	@Success		200		{object}	fileops.Preview
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := h.svc.Preview(r.Context(), ActorFrom(r.Context()), q.Get("dir"), q.Get("file"))
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
