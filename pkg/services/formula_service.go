package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/models"
	"github.com/finscale/hierarchy-engine/pkg/repositories"
)

// FormulaService validates and persists formula attachments. Saves are
// rejected before persistence on any validation failure; nothing is ever
// partially saved.
type FormulaService interface {
	// ValidateTotalFormula checks the payload against the project's current
	// nodes without persisting. Returns the normalized formula.
	ValidateTotalFormula(ctx context.Context, formula *models.TotalFormula) (*models.TotalFormula, error)

	// SaveTotalFormula validates and upserts, keyed by hierarchy id.
	SaveTotalFormula(ctx context.Context, formula *models.TotalFormula) (*models.TotalFormula, error)

	GetTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.TotalFormula, error)
	DeleteTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) error

	// ValidateFormulaGroup checks the payload against the project's current
	// nodes without persisting. Returns the normalized group.
	ValidateFormulaGroup(ctx context.Context, group *models.FormulaGroup) (*models.FormulaGroup, error)

	// SaveFormulaGroup validates and upserts, keyed by hierarchy id.
	SaveFormulaGroup(ctx context.Context, group *models.FormulaGroup) (*models.FormulaGroup, error)

	GetFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.FormulaGroup, error)
	DeleteFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) error
}

type formulaService struct {
	hierarchyRepo repositories.HierarchyRepository
	formulaRepo   repositories.FormulaRepository
	logger        *zap.Logger
}

// NewFormulaService creates a new FormulaService.
func NewFormulaService(
	hierarchyRepo repositories.HierarchyRepository,
	formulaRepo repositories.FormulaRepository,
	logger *zap.Logger,
) FormulaService {
	return &formulaService{
		hierarchyRepo: hierarchyRepo,
		formulaRepo:   formulaRepo,
		logger:        logger.Named("formula-service"),
	}
}

var _ FormulaService = (*formulaService)(nil)

// nodeSnapshot loads just the node set; validation does not need existing
// formulas.
func (s *formulaService) nodeSnapshot(ctx context.Context, projectID uuid.UUID) (*models.ProjectSnapshot, error) {
	nodes, err := s.hierarchyRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return models.NewProjectSnapshot(nodes, nil, nil), nil
}

func (s *formulaService) ValidateTotalFormula(ctx context.Context, formula *models.TotalFormula) (*models.TotalFormula, error) {
	snap, err := s.nodeSnapshot(ctx, formula.ProjectID)
	if err != nil {
		return nil, err
	}
	return ValidateTotalFormula(formula, snap)
}

func (s *formulaService) SaveTotalFormula(ctx context.Context, formula *models.TotalFormula) (*models.TotalFormula, error) {
	normalized, err := s.ValidateTotalFormula(ctx, formula)
	if err != nil {
		return nil, err
	}
	if err := s.formulaRepo.UpsertTotalFormula(ctx, normalized); err != nil {
		return nil, err
	}
	s.logger.Info("Saved total formula",
		zap.String("project_id", normalized.ProjectID.String()),
		zap.String("hierarchy_id", normalized.HierarchyID),
		zap.Int("children", len(normalized.Children)))
	return normalized, nil
}

func (s *formulaService) GetTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.TotalFormula, error) {
	return s.formulaRepo.GetTotalFormula(ctx, projectID, hierarchyID)
}

func (s *formulaService) DeleteTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) error {
	return s.formulaRepo.DeleteTotalFormula(ctx, projectID, hierarchyID)
}

func (s *formulaService) ValidateFormulaGroup(ctx context.Context, group *models.FormulaGroup) (*models.FormulaGroup, error) {
	snap, err := s.nodeSnapshot(ctx, group.ProjectID)
	if err != nil {
		return nil, err
	}
	return ValidateFormulaGroup(group, snap)
}

func (s *formulaService) SaveFormulaGroup(ctx context.Context, group *models.FormulaGroup) (*models.FormulaGroup, error) {
	normalized, err := s.ValidateFormulaGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	if err := s.formulaRepo.UpsertFormulaGroup(ctx, normalized); err != nil {
		return nil, err
	}
	s.logger.Info("Saved formula group",
		zap.String("project_id", normalized.ProjectID.String()),
		zap.String("hierarchy_id", normalized.HierarchyID),
		zap.Int("rules", len(normalized.Rules)))
	return normalized, nil
}

func (s *formulaService) GetFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.FormulaGroup, error) {
	return s.formulaRepo.GetFormulaGroup(ctx, projectID, hierarchyID)
}

func (s *formulaService) DeleteFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) error {
	return s.formulaRepo.DeleteFormulaGroup(ctx, projectID, hierarchyID)
}
