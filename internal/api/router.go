package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/filedeck/internal/fileops"
)

// NewRouter creates a chi router with all API routes mounted behind the
// auth middleware. sseHandler, if non-nil, is mounted at GET /events
// (optionally scoped with ?dir=).
func NewRouter(svc *fileops.Service, auth AuthOptions, maxUpload int64, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, maxUpload)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	// Browsing and creation.
	r.Get("/files", h.Browse)
	r.Post("/files", h.CreateFile)
	r.Post("/folders", h.CreateFolder)
	r.Post("/rename", h.Rename)
	r.Post("/upload", h.Upload)

	// Trash.
	r.Post("/delete", h.Delete)
	r.Get("/trash", h.Trash)
	r.Post("/trash/restore", h.Restore)

	// Editor.
	r.Get("/edit", h.ReadForEdit)
	r.Put("/edit", h.WriteFromEdit)

	// Content.
	r.Get("/download", h.Download)
	r.Get("/view", h.View)
	r.Get("/preview", h.Preview)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
