package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/dialect"
	"github.com/finscale/hierarchy-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CompileNodeRequest for POST /hierarchies/{hid}/compile
type CompileNodeRequest struct {
	Dialect string `json:"dialect"`
}

// CompileNodeResponse carries the rendered scalar expression.
type CompileNodeResponse struct {
	HierarchyID string `json:"hierarchyId"`
	Dialect     string `json:"dialect"`
	Expression  string `json:"expression"`
}

// DialectListResponse for GET /dialects
type DialectListResponse struct {
	Dialects []dialect.Info `json:"dialects"`
	Total    int            `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// EngineHandler handles compilation and script generation HTTP requests.
type EngineHandler struct {
	engineService services.EngineService
	logger        *zap.Logger
}

// NewEngineHandler creates a new engine handler.
func NewEngineHandler(
	engineService services.EngineService,
	logger *zap.Logger,
) *EngineHandler {
	return &EngineHandler{
		engineService: engineService,
		logger:        logger,
	}
}

// RegisterRoutes registers the engine handler's routes on the given mux.
func (h *EngineHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/projects/{pid}"

	mux.HandleFunc("GET /api/dialects", h.ListDialects)
	mux.HandleFunc("GET "+base+"/evaluation-order", h.EvaluationOrder)
	mux.HandleFunc("POST "+base+"/hierarchies/{hid}/compile", h.CompileNode)
	mux.HandleFunc("POST "+base+"/scripts", h.GenerateScripts)
}

// ListDialects handles GET /api/dialects
func (h *EngineHandler) ListDialects(w http.ResponseWriter, r *http.Request) {
	dialects := dialect.Registered()

	response := DialectListResponse{
		Dialects: dialects,
		Total:    len(dialects),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// EvaluationOrder handles GET /api/projects/{pid}/evaluation-order
func (h *EngineHandler) EvaluationOrder(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.engineService.ResolveEvaluationOrder(r.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to resolve evaluation order",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CompileNode handles POST /api/projects/{pid}/hierarchies/{hid}/compile
func (h *EngineHandler) CompileNode(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	var req CompileNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	expr, err := h.engineService.CompileNode(r.Context(), projectID, hierarchyID, req.Dialect)
	if err != nil {
		h.logger.Error("Failed to compile node",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.String("dialect", req.Dialect),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	response := CompileNodeResponse{
		HierarchyID: hierarchyID,
		Dialect:     req.Dialect,
		Expression:  expr,
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GenerateScripts handles POST /api/projects/{pid}/scripts
func (h *EngineHandler) GenerateScripts(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.GenerateScriptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	bundle, err := h.engineService.GenerateScripts(r.Context(), projectID, &req)
	if err != nil {
		h.logger.Error("Failed to generate scripts",
			zap.String("project_id", projectID.String()),
			zap.String("dialect", req.Dialect),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: bundle}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
