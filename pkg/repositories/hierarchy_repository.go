package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/database"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

// HierarchyRepository provides data access for hierarchy nodes.
type HierarchyRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.HierarchyNode, error)
	GetByID(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.HierarchyNode, error)
	Create(ctx context.Context, node *models.HierarchyNode) error
	Update(ctx context.Context, node *models.HierarchyNode) error
	Delete(ctx context.Context, projectID uuid.UUID, hierarchyID string) error
}

type hierarchyRepository struct {
	db *database.DB
}

// NewHierarchyRepository creates a new HierarchyRepository.
func NewHierarchyRepository(db *database.DB) HierarchyRepository {
	return &hierarchyRepository{db: db}
}

var _ HierarchyRepository = (*hierarchyRepository)(nil)

func (r *hierarchyRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.HierarchyNode, error) {
	query := `
		SELECT id, name, parent_id, is_root, level_path, created_at, updated_at
		FROM engine_hierarchy_nodes
		WHERE project_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hierarchy nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*models.HierarchyNode
	for rows.Next() {
		node := &models.HierarchyNode{ProjectID: projectID}
		if err := rows.Scan(&node.ID, &node.Name, &node.ParentID, &node.IsRoot,
			&node.LevelPath, &node.CreatedAt, &node.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hierarchy node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hierarchy nodes: %w", err)
	}
	return nodes, nil
}

func (r *hierarchyRepository) GetByID(ctx context.Context, projectID uuid.UUID, hierarchyID string) (*models.HierarchyNode, error) {
	query := `
		SELECT id, name, parent_id, is_root, level_path, created_at, updated_at
		FROM engine_hierarchy_nodes
		WHERE project_id = $1 AND id = $2`

	node := &models.HierarchyNode{ProjectID: projectID}
	err := r.db.QueryRow(ctx, query, projectID, hierarchyID).Scan(
		&node.ID, &node.Name, &node.ParentID, &node.IsRoot,
		&node.LevelPath, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hierarchy node: %w", err)
	}
	return node, nil
}

func (r *hierarchyRepository) Create(ctx context.Context, node *models.HierarchyNode) error {
	now := time.Now()

	query := `
		INSERT INTO engine_hierarchy_nodes (
			project_id, id, name, parent_id, is_root, level_path, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (project_id, id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		node.ProjectID, node.ID, node.Name, node.ParentID, node.IsRoot,
		levelPath(node.LevelPath), now)
	if err != nil {
		return fmt.Errorf("failed to create hierarchy node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	node.CreatedAt = now
	node.UpdatedAt = now
	return nil
}

func (r *hierarchyRepository) Update(ctx context.Context, node *models.HierarchyNode) error {
	query := `
		UPDATE engine_hierarchy_nodes
		SET name = $3, parent_id = $4, is_root = $5, level_path = $6, updated_at = NOW()
		WHERE project_id = $1 AND id = $2
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		node.ProjectID, node.ID, node.Name, node.ParentID, node.IsRoot,
		levelPath(node.LevelPath)).Scan(&node.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update hierarchy node: %w", err)
	}
	return nil
}

func (r *hierarchyRepository) Delete(ctx context.Context, projectID uuid.UUID, hierarchyID string) error {
	query := `DELETE FROM engine_hierarchy_nodes WHERE project_id = $1 AND id = $2`

	tag, err := r.db.Exec(ctx, query, projectID, hierarchyID)
	if err != nil {
		return fmt.Errorf("failed to delete hierarchy node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// levelPath normalizes a nil slice to an empty array so the NOT NULL
// column constraint holds.
func levelPath(levels []string) []string {
	if levels == nil {
		return []string{}
	}
	return levels
}
