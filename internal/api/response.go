// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/fulltext/internal/extraction"
	"github.com/pdiddy/fulltext/internal/logging"
)

// encodeJSON writes a JSON response with the given status code.
func encodeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "encoding JSON response")
	}
	return nil
}

// writeJSON writes a JSON response. The status line is already sent when
// encoding fails, so the failure can only be logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := encodeJSON(w, status, data); err != nil {
		s.logger.Warnw("failed to write response", "status", status, logging.FieldError, err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps orchestrator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, extraction.ErrNoSuchTask):
		return http.StatusNotFound
	case errors.Is(err, extraction.ErrInvalidRequest),
		errors.Is(err, extraction.ErrSourceNotAllowed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
