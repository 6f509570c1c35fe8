// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every JSON endpoint sends its errors in the same envelope, so API
// consumers always know what an error looks like:
//
//	{ "status": "error", "error": "no student found with roll number: R9" }
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aanand-mishra/mentor-mentee/internal/apperr"
)

// Response is the standard envelope returned for error cases.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error"`  // human-readable error detail
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into our standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// StatusFor maps an error kind to the HTTP status code it is reported with.
//
//	ErrValidation → 400   ErrAuth       → 401
//	ErrNotFound   → 404   ErrConstraint → 409
//	ErrConnection → 503   anything else → 500
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConstraint):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err in the standard envelope with the status from StatusFor.
// Unclassified errors are reported without their internal detail.
func Error(w http.ResponseWriter, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return WriteJSON(w, status, GeneralError(errors.New("internal error")))
	}
	return WriteJSON(w, status, GeneralError(err))
}
