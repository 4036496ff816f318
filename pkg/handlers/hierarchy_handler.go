package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/models"
	"github.com/finscale/hierarchy-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// HierarchyListResponse for GET /hierarchies
type HierarchyListResponse struct {
	Hierarchies []*models.HierarchyNode `json:"hierarchies"`
	Total       int                     `json:"total"`
}

// UpsertHierarchyRequest for POST /hierarchies and PUT /hierarchies/{hid}
type UpsertHierarchyRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ParentID  *string  `json:"parent_id,omitempty"`
	IsRoot    bool     `json:"is_root"`
	LevelPath []string `json:"level_path,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// HierarchyHandler handles hierarchy node HTTP requests.
type HierarchyHandler struct {
	hierarchyService services.HierarchyService
	logger           *zap.Logger
}

// NewHierarchyHandler creates a new hierarchy handler.
func NewHierarchyHandler(
	hierarchyService services.HierarchyService,
	logger *zap.Logger,
) *HierarchyHandler {
	return &HierarchyHandler{
		hierarchyService: hierarchyService,
		logger:           logger,
	}
}

// RegisterRoutes registers the hierarchy handler's routes on the given mux.
func (h *HierarchyHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/projects/{pid}/hierarchies"

	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base+"/{hid}", h.Get)
	mux.HandleFunc("PUT "+base+"/{hid}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{hid}", h.Delete)
}

// List handles GET /api/projects/{pid}/hierarchies
func (h *HierarchyHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	nodes, err := h.hierarchyService.List(r.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list hierarchies",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	response := HierarchyListResponse{
		Hierarchies: nodes,
		Total:       len(nodes),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}/hierarchies/{hid}
func (h *HierarchyHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	node, err := h.hierarchyService.Get(r.Context(), projectID, hierarchyID)
	if err != nil {
		h.logger.Error("Failed to get hierarchy",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: node}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/projects/{pid}/hierarchies
func (h *HierarchyHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpsertHierarchyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	node := &models.HierarchyNode{
		ID:        req.ID,
		ProjectID: projectID,
		Name:      req.Name,
		ParentID:  req.ParentID,
		IsRoot:    req.IsRoot,
		LevelPath: req.LevelPath,
	}

	if err := node.Validate(); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.hierarchyService.Create(r.Context(), node); err != nil {
		h.logger.Error("Failed to create hierarchy",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", req.ID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: node}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/projects/{pid}/hierarchies/{hid}
func (h *HierarchyHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpsertHierarchyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// The path segment wins over any id in the body.
	node := &models.HierarchyNode{
		ID:        hierarchyID,
		ProjectID: projectID,
		Name:      req.Name,
		ParentID:  req.ParentID,
		IsRoot:    req.IsRoot,
		LevelPath: req.LevelPath,
	}

	if err := node.Validate(); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.hierarchyService.Update(r.Context(), node); err != nil {
		h.logger.Error("Failed to update hierarchy",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: node}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/projects/{pid}/hierarchies/{hid}
func (h *HierarchyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.hierarchyService.Delete(r.Context(), projectID, hierarchyID); err != nil {
		h.logger.Error("Failed to delete hierarchy",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
