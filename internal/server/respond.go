package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/courseai/courseai/pkg/courselog"
)

// errorBody is the JSON error response shape.
type errorBody struct {
	Detail string `json:"detail"`
}

// respond encodes v as JSON with the given status code.
func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encoding failed", "error", err)
	}
}

// respondError writes a JSON error body with the given status and message.
func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respond(w, status, errorBody{Detail: detail})
}

// respondStoreError maps a store failure to 404 or 500.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, courselog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Course not found")
		return
	}
	s.log.Error("store operation failed", "error", err)
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON parses the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
