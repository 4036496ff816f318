package services

import (
	"fmt"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

// ValidateTotalFormula checks a TotalFormula payload against the project
// snapshot and returns a normalized copy: children deduplicated, order
// preserved by first occurrence. Validation is pure; nothing is persisted.
func ValidateTotalFormula(f *models.TotalFormula, snap *models.ProjectSnapshot) (*models.TotalFormula, error) {
	if !models.IsValidAggregation(f.Aggregation) {
		return nil, &apperrors.InvalidFormulaError{
			HierarchyID: f.HierarchyID,
			RuleIndex:   -1,
			Reason:      fmt.Sprintf("unknown aggregation %q", f.Aggregation),
		}
	}
	if len(f.Children) == 0 {
		return nil, &apperrors.InvalidFormulaError{
			HierarchyID: f.HierarchyID,
			RuleIndex:   -1,
			Reason:      "children must not be empty",
		}
	}

	seen := make(map[string]bool, len(f.Children))
	children := make([]models.ChildRef, 0, len(f.Children))
	for i, child := range f.Children {
		if child.HierarchyID == "" {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: f.HierarchyID,
				RuleIndex:   i,
				Reason:      "child hierarchy id is empty",
			}
		}
		if child.HierarchyID == f.HierarchyID {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: f.HierarchyID,
				RuleIndex:   i,
				Reason:      "formula references its own node",
			}
		}
		if !snap.HasNode(child.HierarchyID) {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: f.HierarchyID,
				RuleIndex:   i,
				Reason:      fmt.Sprintf("unknown hierarchy %q", child.HierarchyID),
			}
		}
		if seen[child.HierarchyID] {
			continue
		}
		seen[child.HierarchyID] = true
		children = append(children, child)
	}

	normalized := *f
	normalized.Children = children
	return &normalized, nil
}

// ValidateFormulaGroup checks a FormulaGroup payload against the project
// snapshot and returns a normalized copy. Each rule must carry exactly one
// operand source and a positive precedence; hierarchy references must
// resolve within the project.
func ValidateFormulaGroup(g *models.FormulaGroup, snap *models.ProjectSnapshot) (*models.FormulaGroup, error) {
	if len(g.Rules) == 0 {
		return nil, &apperrors.InvalidFormulaError{
			HierarchyID: g.HierarchyID,
			RuleIndex:   -1,
			Reason:      "rules must not be empty",
		}
	}

	rules := make([]models.FormulaRule, len(g.Rules))
	copy(rules, g.Rules)

	for i := range rules {
		rule := &rules[i]
		if !models.IsValidOperation(rule.Operation) {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: g.HierarchyID,
				RuleIndex:   i,
				Reason:      fmt.Sprintf("unknown operation %q", rule.Operation),
			}
		}
		if rule.Precedence < 1 {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: g.HierarchyID,
				RuleIndex:   i,
				Reason:      fmt.Sprintf("precedence must be a positive integer, got %d", rule.Precedence),
			}
		}
		switch count := rule.OperandSourceCount(); {
		case count == 0:
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: g.HierarchyID,
				RuleIndex:   i,
				Reason:      "rule has no operand source",
			}
		case count > 1:
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: g.HierarchyID,
				RuleIndex:   i,
				Reason:      fmt.Sprintf("rule has %d operand sources, exactly one required", count),
			}
		}
		if rule.FormulaRefSource != "" && rule.FormulaRefTable == "" ||
			rule.FormulaRefSource == "" && rule.FormulaRefTable != "" {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: g.HierarchyID,
				RuleIndex:   i,
				Reason:      "external reference requires both formulaRefSource and formulaRefTable",
			}
		}
		if rule.HierarchyID != "" && !snap.HasNode(rule.HierarchyID) {
			return nil, &apperrors.InvalidFormulaError{
				HierarchyID: g.HierarchyID,
				RuleIndex:   i,
				Reason:      fmt.Sprintf("unknown hierarchy %q", rule.HierarchyID),
			}
		}
	}

	normalized := *g
	normalized.Rules = rules
	return &normalized, nil
}
