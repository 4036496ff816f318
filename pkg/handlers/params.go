package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseProjectID extracts and validates the project ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue("pid")
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_project_id", "Invalid project ID format"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// ParseHierarchyID extracts the hierarchy ID from the request path. Hierarchy
// ids are caller-supplied business identifiers, not UUIDs, so the only check
// is that the segment is non-empty.
// Expects path parameter: hid
func ParseHierarchyID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	id := r.PathValue("hid")
	if id == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_hierarchy_id", "Hierarchy ID is required"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return id, true
}
