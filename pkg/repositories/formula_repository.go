package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/database"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

// FormulaRepository provides data access for formula attachments. Writes
// are upserts keyed by (project_id, hierarchy_id): formulas have
// create-or-update semantics independent of node lifecycle.
type FormulaRepository interface {
	GetTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.TotalFormula, error)
	ListTotalFormulas(ctx context.Context, projectID uuid.UUID) ([]*models.TotalFormula, error)
	UpsertTotalFormula(ctx context.Context, formula *models.TotalFormula) error
	DeleteTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) error

	GetFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.FormulaGroup, error)
	ListFormulaGroups(ctx context.Context, projectID uuid.UUID) ([]*models.FormulaGroup, error)
	UpsertFormulaGroup(ctx context.Context, group *models.FormulaGroup) error
	DeleteFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) error
}

type formulaRepository struct {
	db *database.DB
}

// NewFormulaRepository creates a new FormulaRepository.
func NewFormulaRepository(db *database.DB) FormulaRepository {
	return &formulaRepository{db: db}
}

var _ FormulaRepository = (*formulaRepository)(nil)

// ============================================================================
// Total Formulas
// ============================================================================

func (r *formulaRepository) GetTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.TotalFormula, error) {
	query := `
		SELECT aggregation, children, created_at, updated_at
		FROM engine_total_formulas
		WHERE project_id = $1 AND hierarchy_id = $2`

	formula := &models.TotalFormula{ProjectID: projectID, HierarchyID: hierarchyID}
	var children []byte
	err := r.db.QueryRow(ctx, query, projectID, hierarchyID).Scan(
		&formula.Aggregation, &children, &formula.CreatedAt, &formula.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get total formula: %w", err)
	}
	if err := json.Unmarshal(children, &formula.Children); err != nil {
		return nil, fmt.Errorf("failed to decode total formula children: %w", err)
	}
	return formula, nil
}

func (r *formulaRepository) ListTotalFormulas(ctx context.Context, projectID uuid.UUID) ([]*models.TotalFormula, error) {
	query := `
		SELECT hierarchy_id, aggregation, children, created_at, updated_at
		FROM engine_total_formulas
		WHERE project_id = $1
		ORDER BY hierarchy_id`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list total formulas: %w", err)
	}
	defer rows.Close()

	var formulas []*models.TotalFormula
	for rows.Next() {
		formula := &models.TotalFormula{ProjectID: projectID}
		var children []byte
		if err := rows.Scan(&formula.HierarchyID, &formula.Aggregation, &children,
			&formula.CreatedAt, &formula.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan total formula: %w", err)
		}
		if err := json.Unmarshal(children, &formula.Children); err != nil {
			return nil, fmt.Errorf("failed to decode total formula children: %w", err)
		}
		formulas = append(formulas, formula)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read total formulas: %w", err)
	}
	return formulas, nil
}

func (r *formulaRepository) UpsertTotalFormula(ctx context.Context, formula *models.TotalFormula) error {
	children, err := json.Marshal(formula.Children)
	if err != nil {
		return fmt.Errorf("failed to encode total formula children: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO engine_total_formulas (
			project_id, hierarchy_id, aggregation, children, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (project_id, hierarchy_id)
		DO UPDATE SET aggregation = $3, children = $4, updated_at = $5
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		formula.ProjectID, formula.HierarchyID, formula.Aggregation, children, now,
	).Scan(&formula.CreatedAt, &formula.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert total formula: %w", err)
	}
	return nil
}

func (r *formulaRepository) DeleteTotalFormula(ctx context.Context, projectID uuid.UUID, hierarchyID string) error {
	query := `DELETE FROM engine_total_formulas WHERE project_id = $1 AND hierarchy_id = $2`

	tag, err := r.db.Exec(ctx, query, projectID, hierarchyID)
	if err != nil {
		return fmt.Errorf("failed to delete total formula: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ============================================================================
// Formula Groups
// ============================================================================

func (r *formulaRepository) GetFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.FormulaGroup, error) {
	query := `
		SELECT main_hierarchy_name, rules, created_at, updated_at
		FROM engine_formula_groups
		WHERE project_id = $1 AND hierarchy_id = $2`

	group := &models.FormulaGroup{ProjectID: projectID, HierarchyID: hierarchyID}
	var rules []byte
	err := r.db.QueryRow(ctx, query, projectID, hierarchyID).Scan(
		&group.MainHierarchyName, &rules, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get formula group: %w", err)
	}
	if err := json.Unmarshal(rules, &group.Rules); err != nil {
		return nil, fmt.Errorf("failed to decode formula group rules: %w", err)
	}
	return group, nil
}

func (r *formulaRepository) ListFormulaGroups(ctx context.Context, projectID uuid.UUID) ([]*models.FormulaGroup, error) {
	query := `
		SELECT hierarchy_id, main_hierarchy_name, rules, created_at, updated_at
		FROM engine_formula_groups
		WHERE project_id = $1
		ORDER BY hierarchy_id`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list formula groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.FormulaGroup
	for rows.Next() {
		group := &models.FormulaGroup{ProjectID: projectID}
		var rules []byte
		if err := rows.Scan(&group.HierarchyID, &group.MainHierarchyName, &rules,
			&group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan formula group: %w", err)
		}
		if err := json.Unmarshal(rules, &group.Rules); err != nil {
			return nil, fmt.Errorf("failed to decode formula group rules: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read formula groups: %w", err)
	}
	return groups, nil
}

func (r *formulaRepository) UpsertFormulaGroup(ctx context.Context, group *models.FormulaGroup) error {
	rules, err := json.Marshal(group.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode formula group rules: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO engine_formula_groups (
			project_id, hierarchy_id, main_hierarchy_name, rules, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (project_id, hierarchy_id)
		DO UPDATE SET main_hierarchy_name = $3, rules = $4, updated_at = $5
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		group.ProjectID, group.HierarchyID, group.MainHierarchyName, rules, now,
	).Scan(&group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert formula group: %w", err)
	}
	return nil
}

func (r *formulaRepository) DeleteFormulaGroup(ctx context.Context, projectID uuid.UUID, hierarchyID string) error {
	query := `DELETE FROM engine_formula_groups WHERE project_id = $1 AND hierarchy_id = $2`

	tag, err := r.db.Exec(ctx, query, projectID, hierarchyID)
	if err != nil {
		return fmt.Errorf("failed to delete formula group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
