package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/filedeck/internal/apperr"
	"github.com/starford/filedeck/internal/fileops"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps core errors to HTTP status codes. Anything unknown is an
// internal error whose detail stays in the log.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, apperr.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrCollisionExhausted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(fileops.CodeFor(err)))
}

// writeOutcome responds with an operation outcome. Errors keep the outcome
// body but carry the mapped status.
func writeOutcome(w http.ResponseWriter, out fileops.Outcome, err error) {
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, out)
}
