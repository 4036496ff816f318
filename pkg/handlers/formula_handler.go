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

// PutTotalFormulaRequest for PUT /hierarchies/{hid}/total-formula
type PutTotalFormulaRequest struct {
	Aggregation models.Aggregation `json:"aggregation"`
	Children    []models.ChildRef  `json:"children"`
}

// PutFormulaGroupRequest for PUT /hierarchies/{hid}/formula-group
type PutFormulaGroupRequest struct {
	MainHierarchyName string               `json:"mainHierarchyName"`
	Rules             []models.FormulaRule `json:"rules"`
}

// ValidateFormulaRequest for POST /formulas/validate. Exactly one of
// TotalFormula or FormulaGroup must be set; Kind names which.
type ValidateFormulaRequest struct {
	Kind         string                  `json:"kind"`
	HierarchyID  string                  `json:"hierarchyId"`
	TotalFormula *PutTotalFormulaRequest `json:"totalFormula,omitempty"`
	FormulaGroup *PutFormulaGroupRequest `json:"formulaGroup,omitempty"`
}

// ValidateFormulaResponse reports the outcome without persisting anything.
type ValidateFormulaResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// FormulaHandler handles formula attachment HTTP requests.
type FormulaHandler struct {
	formulaService services.FormulaService
	logger         *zap.Logger
}

// NewFormulaHandler creates a new formula handler.
func NewFormulaHandler(
	formulaService services.FormulaService,
	logger *zap.Logger,
) *FormulaHandler {
	return &FormulaHandler{
		formulaService: formulaService,
		logger:         logger,
	}
}

// RegisterRoutes registers the formula handler's routes on the given mux.
func (h *FormulaHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/projects/{pid}/hierarchies/{hid}"

	mux.HandleFunc("GET "+base+"/total-formula", h.GetTotalFormula)
	mux.HandleFunc("PUT "+base+"/total-formula", h.PutTotalFormula)
	mux.HandleFunc("DELETE "+base+"/total-formula", h.DeleteTotalFormula)
	mux.HandleFunc("GET "+base+"/formula-group", h.GetFormulaGroup)
	mux.HandleFunc("PUT "+base+"/formula-group", h.PutFormulaGroup)
	mux.HandleFunc("DELETE "+base+"/formula-group", h.DeleteFormulaGroup)
	mux.HandleFunc("POST /api/projects/{pid}/formulas/validate", h.Validate)
}

// GetTotalFormula handles GET /api/projects/{pid}/hierarchies/{hid}/total-formula
func (h *FormulaHandler) GetTotalFormula(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	formula, err := h.formulaService.GetTotalFormula(r.Context(), projectID, hierarchyID)
	if err != nil {
		h.logger.Error("Failed to get total formula",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: formula}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PutTotalFormula handles PUT /api/projects/{pid}/hierarchies/{hid}/total-formula
func (h *FormulaHandler) PutTotalFormula(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	var req PutTotalFormulaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	formula := &models.TotalFormula{
		ProjectID:   projectID,
		HierarchyID: hierarchyID,
		Aggregation: req.Aggregation,
		Children:    req.Children,
	}

	saved, err := h.formulaService.SaveTotalFormula(r.Context(), formula)
	if err != nil {
		h.logger.Error("Failed to save total formula",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: saved}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteTotalFormula handles DELETE /api/projects/{pid}/hierarchies/{hid}/total-formula
func (h *FormulaHandler) DeleteTotalFormula(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.formulaService.DeleteTotalFormula(r.Context(), projectID, hierarchyID); err != nil {
		h.logger.Error("Failed to delete total formula",
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

// GetFormulaGroup handles GET /api/projects/{pid}/hierarchies/{hid}/formula-group
func (h *FormulaHandler) GetFormulaGroup(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	group, err := h.formulaService.GetFormulaGroup(r.Context(), projectID, hierarchyID)
	if err != nil {
		h.logger.Error("Failed to get formula group",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: group}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PutFormulaGroup handles PUT /api/projects/{pid}/hierarchies/{hid}/formula-group
func (h *FormulaHandler) PutFormulaGroup(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	var req PutFormulaGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	group := &models.FormulaGroup{
		ProjectID:         projectID,
		HierarchyID:       hierarchyID,
		MainHierarchyName: req.MainHierarchyName,
		Rules:             req.Rules,
	}

	saved, err := h.formulaService.SaveFormulaGroup(r.Context(), group)
	if err != nil {
		h.logger.Error("Failed to save formula group",
			zap.String("project_id", projectID.String()),
			zap.String("hierarchy_id", hierarchyID),
			zap.Error(err))
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: saved}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteFormulaGroup handles DELETE /api/projects/{pid}/hierarchies/{hid}/formula-group
func (h *FormulaHandler) DeleteFormulaGroup(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	hierarchyID, ok := ParseHierarchyID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.formulaService.DeleteFormulaGroup(r.Context(), projectID, hierarchyID); err != nil {
		h.logger.Error("Failed to delete formula group",
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

// Validate handles POST /api/projects/{pid}/formulas/validate
// Runs structural validation against the project's current nodes without
// persisting. Validation failures come back as a 200 with valid=false so
// editors can probe payloads cheaply.
func (h *FormulaHandler) Validate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req ValidateFormulaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var validateErr error
	switch req.Kind {
	case "total_formula":
		if req.TotalFormula == nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "totalFormula payload is required for kind total_formula"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		_, validateErr = h.formulaService.ValidateTotalFormula(r.Context(), &models.TotalFormula{
			ProjectID:   projectID,
			HierarchyID: req.HierarchyID,
			Aggregation: req.TotalFormula.Aggregation,
			Children:    req.TotalFormula.Children,
		})
	case "formula_group":
		if req.FormulaGroup == nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "formulaGroup payload is required for kind formula_group"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		_, validateErr = h.formulaService.ValidateFormulaGroup(r.Context(), &models.FormulaGroup{
			ProjectID:         projectID,
			HierarchyID:       req.HierarchyID,
			MainHierarchyName: req.FormulaGroup.MainHierarchyName,
			Rules:             req.FormulaGroup.Rules,
		})
	default:
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "kind must be total_formula or formula_group"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ValidateFormulaResponse{Valid: validateErr == nil}
	if validateErr != nil {
		response.Error = validateErr.Error()
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
