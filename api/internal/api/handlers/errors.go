package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"peerloop/api/internal/core/domain"
)

// Use a single instance of Validate, it caches struct info.
var validate = validator.New()

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleError maps domain errors to the transport taxonomy. Everything
// unrecognized collapses to a generic `internal` so callers learn nothing
// about crypto or storage internals; the detail goes to the log instead.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var valErrs validator.ValidationErrors

	switch {
	case errors.As(err, &valErrs), errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid-argument", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not-found", "Resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Not authorized for this resource")
	case errors.Is(err, domain.ErrDuplicateResponse):
		writeError(w, http.StatusConflict, "already-exists", "A response for this pair was already submitted")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "failed-precondition", err.Error())
	default:
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal", "Internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
