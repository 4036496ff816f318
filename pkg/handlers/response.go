package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
)

// ApiResponse is the envelope every JSON endpoint returns.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusForError maps domain errors onto HTTP status codes and stable error
// codes. Anything unrecognized is a 500.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrUnknownDialect):
		return http.StatusBadRequest, "unknown_dialect"
	case errors.Is(err, apperrors.ErrEmptySelection):
		return http.StatusBadRequest, "empty_selection"
	case errors.Is(err, apperrors.ErrInjectionUnsafe):
		return http.StatusUnprocessableEntity, "unsafe_value"
	case apperrors.IsInvalidFormula(err):
		return http.StatusUnprocessableEntity, "invalid_formula"
	case apperrors.IsCircularDependency(err):
		return http.StatusConflict, "circular_dependency"
	case apperrors.IsDanglingReference(err):
		return http.StatusConflict, "dangling_reference"
	case apperrors.IsUnsupportedOperation(err):
		return http.StatusBadRequest, "unsupported_operation"
	}
	return http.StatusInternalServerError, "internal_error"
}

// WriteServiceError maps err to a status code and writes the error response.
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code := statusForError(err)
	if writeErr := ErrorResponse(w, status, code, err.Error()); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
