package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/northbound-system/kb-ingest/internal/apierr"
)

// errorResponse is the {message, code} shape spec.md §6 requires.
type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a sentinel error kind to its HTTP status and writes the
// {message, code} body, defaulting to 500 for anything unrecognized per
// spec.md §6.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apierr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apierr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apierr.ErrBackend):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Message: err.Error(), Code: status})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: message, Code: http.StatusBadRequest})
}
