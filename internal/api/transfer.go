package api

import (
	"errors"
	"mime"
	"net/http"

	"github.com/starford/filedeck/internal/fileops"
)

// Upload handles POST /api/upload (multipart/form-data, field "files").
//
//	@Summary		Upload files into a directory
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			dir		query		string	false	"Target directory"
//	@Param			files	formData	file	true	"Files"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("upload too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'files' field in multipart form"))
		return
	}

	incoming := make([]fileops.Incoming, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			incoming = append(incoming, fileops.Incoming{Filename: fh.Filename})
			continue
		}
		defer f.Close()
		incoming = append(incoming, fileops.Incoming{Filename: fh.Filename, Content: f, OK: true})
	}

	res, err := h.svc.Upload(r.Context(), ActorFrom(r.Context()), r.URL.Query().Get("dir"), incoming)
	if err != nil {
		writeError(w, "upload", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Download handles GET /api/download.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "attachment")
}

// View handles GET /api/view.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "inline")
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, disposition string) {
	q := r.URL.Query()
	f, err := h.svc.Open(r.Context(), ActorFrom(r.Context()), q.Get("dir"), q.Get("file"))
	if err != nil {
		writeError(w, "open", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", f.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": f.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if disposition == "inline" {
		// Served files share the API origin; never let them run script.
		w.Header().Set("Content-Security-Policy", "sandbox")
	}
	http.ServeContent(w, r, f.Name, f.Modified, f)
}
