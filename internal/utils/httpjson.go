package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/rs/zerolog"
)

// WriteJSON encodes data as the response body.
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteData wraps data in the standard {"data", "metadata"} envelope.
func WriteData(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	WriteJSON(w, log, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// StatusForError maps a domain error kind to an HTTP status.
// Rejected edits (409, 422) are distinct from unsaved edits (503).
func StatusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRateLookup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": {"kind", "message", "retryable"}} with the mapped status.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	WriteJSON(w, log, status, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":      domain.Kind(err),
			"message":   err.Error(),
			"retryable": errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrRateLookup),
		},
	})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
// Decode failures are reported as validation errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid JSON: %v", err)
	}
	return nil
}
