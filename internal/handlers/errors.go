package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/rehearsal-scheduler/app/internal/logging"
)

// HTTPError is an error with the status and client-facing message to send.
// Err, when set, is logged but never returned to the client.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

func BadRequest(msg string) *HTTPError   { return &HTTPError{Status: http.StatusBadRequest, Message: msg} }
func Unauthorized(msg string) *HTTPError { return &HTTPError{Status: http.StatusUnauthorized, Message: msg} }
func Forbidden(msg string) *HTTPError    { return &HTTPError{Status: http.StatusForbidden, Message: msg} }
func NotFound(msg string) *HTTPError     { return &HTTPError{Status: http.StatusNotFound, Message: msg} }
func Conflict(msg string) *HTTPError     { return &HTTPError{Status: http.StatusConflict, Message: msg} }

// HandlerFunc is an http.HandlerFunc that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts h to net/http. Every returned error goes through writeError,
// the single place errors become responses.
func Handle(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
	case errors.Is(err, sql.ErrNoRows):
		httpErr = NotFound("Resource not found")
	default:
		httpErr = &HTTPError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
	}

	entry := logging.FromContext(r.Context()).WithField("status", httpErr.Status)
	if httpErr.Status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}

	writeJSON(w, httpErr.Status, ErrorResponse{Message: httpErr.Message})
}
