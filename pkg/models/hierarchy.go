package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxLevelPathDepth is the maximum number of named levels a node may carry.
// Levels are display/grouping metadata only and never influence derivation.
const MaxLevelPathDepth = 15

// HierarchyNode is one entry in a project's financial reporting tree.
// The id is caller-supplied and unique within the project (e.g. "GROSS_PROFIT").
type HierarchyNode struct {
	ID        string    `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	IsRoot    bool      `json:"is_root"`
	LevelPath []string  `json:"level_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks structural constraints on the node itself.
func (n *HierarchyNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("hierarchy id is required")
	}
	if n.Name == "" {
		return fmt.Errorf("hierarchy name is required")
	}
	if len(n.LevelPath) > MaxLevelPathDepth {
		return fmt.Errorf("level path has %d levels, maximum is %d", len(n.LevelPath), MaxLevelPathDepth)
	}
	if n.ParentID != nil && *n.ParentID == n.ID {
		return fmt.Errorf("hierarchy %q cannot be its own parent", n.ID)
	}
	return nil
}
