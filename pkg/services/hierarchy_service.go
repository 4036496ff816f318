package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/models"
	"github.com/finscale/hierarchy-engine/pkg/repositories"
)

// HierarchyService provides operations for managing hierarchy nodes.
type HierarchyService interface {
	// List returns all nodes in a project, ordered by id.
	List(ctx context.Context, projectID uuid.UUID) ([]*models.HierarchyNode, error)

	// Get returns a single node by id.
	Get(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.HierarchyNode, error)

	// Create inserts a new node after structural validation. The parent,
	// when set, must already exist in the project.
	Create(ctx context.Context, node *models.HierarchyNode) error

	// Update rewrites an existing node's fields.
	Update(ctx context.Context, node *models.HierarchyNode) error

	// Delete removes a node and the formulas attached to it. Formulas on
	// OTHER nodes that reference the deleted one are left in place; they
	// surface as dangling references at compile time, never silently
	// dropped.
	Delete(ctx context.Context, projectID uuid.UUID, hierarchyID string) error
}

type hierarchyService struct {
	hierarchyRepo repositories.HierarchyRepository
	formulaRepo   repositories.FormulaRepository
	logger        *zap.Logger
}

// NewHierarchyService creates a new HierarchyService.
func NewHierarchyService(
	hierarchyRepo repositories.HierarchyRepository,
	formulaRepo repositories.FormulaRepository,
	logger *zap.Logger,
) HierarchyService {
	return &hierarchyService{
		hierarchyRepo: hierarchyRepo,
		formulaRepo:   formulaRepo,
		logger:        logger.Named("hierarchy-service"),
	}
}

var _ HierarchyService = (*hierarchyService)(nil)

func (s *hierarchyService) List(ctx context.Context, projectID uuid.UUID) ([]*models.HierarchyNode, error) {
	return s.hierarchyRepo.ListByProject(ctx, projectID)
}

func (s *hierarchyService) Get(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.HierarchyNode, error) {
	return s.hierarchyRepo.GetByID(ctx, projectID, hierarchyID)
}

func (s *hierarchyService) Create(ctx context.Context, node *models.HierarchyNode) error {
	if err := node.Validate(); err != nil {
		return err
	}
	if err := s.checkParent(ctx, node); err != nil {
		return err
	}
	return s.hierarchyRepo.Create(ctx, node)
}

func (s *hierarchyService) Update(ctx context.Context, node *models.HierarchyNode) error {
	if err := node.Validate(); err != nil {
		return err
	}
	if err := s.checkParent(ctx, node); err != nil {
		return err
	}
	return s.hierarchyRepo.Update(ctx, node)
}

func (s *hierarchyService) Delete(ctx context.Context, projectID uuid.UUID, hierarchyID string) error {
	if err := s.hierarchyRepo.Delete(ctx, projectID, hierarchyID); err != nil {
		return err
	}

	// Detach the node's own formula attachments. Missing rows are fine;
	// most nodes carry at most one formula kind.
	if err := s.formulaRepo.DeleteTotalFormula(ctx, projectID, hierarchyID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to detach total formula: %w", err)
	}
	if err := s.formulaRepo.DeleteFormulaGroup(ctx, projectID, hierarchyID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to detach formula group: %w", err)
	}

	s.logger.Info("Deleted hierarchy node",
		zap.String("project_id", projectID.String()),
		zap.String("hierarchy_id", hierarchyID))
	return nil
}

func (s *hierarchyService) checkParent(ctx context.Context, node *models.HierarchyNode) error {
	if node.ParentID == nil {
		return nil
	}
	_, err := s.hierarchyRepo.GetByID(ctx, node.ProjectID, *node.ParentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("parent hierarchy %q does not exist", *node.ParentID)
	}
	return err
}
