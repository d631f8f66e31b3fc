package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// writeJSON encodes v with the given status. A nil v writes no body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("Request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &HTTPError{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large"}
		}
		return BadRequest("Invalid JSON body")
	}
	return nil
}

// pathID parses the named mux path variable as a positive integer.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("Invalid " + name + " format")
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter; absent is 0.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("Invalid " + name + " parameter")
	}
	return id, nil
}

// queryTime parses an optional RFC 3339 query parameter; absent is the zero time.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, BadRequest("Invalid " + name + " parameter, use RFC 3339")
	}
	return t, nil
}

// queryLimit parses ?limit=, falling back to def and capping at max.
func queryLimit(r *http.Request, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, BadRequest("Invalid limit parameter")
	}
	if n > max {
		n = max
	}
	return n, nil
}
