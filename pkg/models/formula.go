package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Aggregation
// ============================================================================

// Aggregation is the function a TotalFormula applies over its children.
type Aggregation string

const (
	AggregationSum     Aggregation = "SUM"
	AggregationAverage Aggregation = "AVERAGE"
	AggregationCount   Aggregation = "COUNT"
	AggregationMin     Aggregation = "MIN"
	AggregationMax     Aggregation = "MAX"
)

// ValidAggregations contains all valid aggregation values.
var ValidAggregations = []Aggregation{
	AggregationSum,
	AggregationAverage,
	AggregationCount,
	AggregationMin,
	AggregationMax,
}

// IsValidAggregation checks if the given aggregation is valid.
func IsValidAggregation(a Aggregation) bool {
	for _, v := range ValidAggregations {
		if v == a {
			return true
		}
	}
	return false
}

// ============================================================================
// Operation
// ============================================================================

// Operation is how a FormulaRule combines its operand into the running
// accumulator. The aggregate operations reduce a multi-row operand to a
// scalar before folding.
type Operation string

const (
	OperationAdd      Operation = "ADD"
	OperationSubtract Operation = "SUBTRACT"
	OperationMultiply Operation = "MULTIPLY"
	OperationDivide   Operation = "DIVIDE"
	OperationSum      Operation = "SUM"
	OperationAverage  Operation = "AVERAGE"
	OperationCount    Operation = "COUNT"
	OperationMin      Operation = "MIN"
	OperationMax      Operation = "MAX"
)

// ValidOperations contains all valid rule operations.
var ValidOperations = []Operation{
	OperationAdd,
	OperationSubtract,
	OperationMultiply,
	OperationDivide,
	OperationSum,
	OperationAverage,
	OperationCount,
	OperationMin,
	OperationMax,
}

// IsValidOperation checks if the given operation is valid.
func IsValidOperation(o Operation) bool {
	for _, v := range ValidOperations {
		if v == o {
			return true
		}
	}
	return false
}

// IsAggregate returns true for operations that reduce a row stream to a
// scalar (SUM, AVERAGE, COUNT, MIN, MAX) rather than folding arithmetically.
func (o Operation) IsAggregate() bool {
	switch o {
	case OperationSum, OperationAverage, OperationCount, OperationMin, OperationMax:
		return true
	}
	return false
}

// ============================================================================
// Total Formula
// ============================================================================

// ChildRef references a hierarchy node contributing to a TotalFormula.
type ChildRef struct {
	HierarchyID   string `json:"hierarchyId"`
	HierarchyName string `json:"hierarchyName"`
}

// TotalFormula defines a node's value as an aggregation over a fixed set of
// child nodes. At most one is attached per node, keyed by hierarchy id with
// create-or-update semantics.
type TotalFormula struct {
	ProjectID   uuid.UUID   `json:"project_id"`
	HierarchyID string      `json:"hierarchyId"`
	Aggregation Aggregation `json:"aggregation"`
	Children    []ChildRef  `json:"children"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ============================================================================
// Formula Group
// ============================================================================

// FormulaRule is one step of a FormulaGroup. Exactly one operand source must
// be set: a hierarchy reference, a constant, a parameter reference, or an
// external source/table pair.
type FormulaRule struct {
	HierarchyID        string           `json:"hierarchyId,omitempty"`
	HierarchyName      string           `json:"hierarchyName,omitempty"`
	Operation          Operation        `json:"operation"`
	Precedence         int              `json:"precedence"`
	ParameterReference string           `json:"parameterReference,omitempty"`
	ConstantNumber     *decimal.Decimal `json:"constantNumber,omitempty"`
	FormulaRefSource   string           `json:"formulaRefSource,omitempty"`
	FormulaRefTable    string           `json:"formulaRefTable,omitempty"`
}

// OperandSourceCount returns how many operand sources the rule sets.
// A valid rule sets exactly one.
func (r *FormulaRule) OperandSourceCount() int {
	count := 0
	if r.HierarchyID != "" {
		count++
	}
	if r.ConstantNumber != nil {
		count++
	}
	if r.ParameterReference != "" {
		count++
	}
	if r.FormulaRefSource != "" || r.FormulaRefTable != "" {
		count++
	}
	return count
}

// FormulaGroup defines a node's value as an ordered, tiered arithmetic
// expression over other nodes, constants, and external references.
type FormulaGroup struct {
	ProjectID         uuid.UUID     `json:"project_id"`
	HierarchyID       string        `json:"hierarchyId"`
	MainHierarchyName string        `json:"mainHierarchyName"`
	Rules             []FormulaRule `json:"rules"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ReferencedIDs returns the hierarchy ids the group's rules reference, in
// rule order, without duplicates.
func (g *FormulaGroup) ReferencedIDs() []string {
	seen := make(map[string]bool, len(g.Rules))
	var ids []string
	for _, rule := range g.Rules {
		if rule.HierarchyID == "" || seen[rule.HierarchyID] {
			continue
		}
		seen[rule.HierarchyID] = true
		ids = append(ids, rule.HierarchyID)
	}
	return ids
}

// ReferencedIDs returns the child hierarchy ids in order, without duplicates.
func (f *TotalFormula) ReferencedIDs() []string {
	seen := make(map[string]bool, len(f.Children))
	var ids []string
	for _, child := range f.Children {
		if seen[child.HierarchyID] {
			continue
		}
		seen[child.HierarchyID] = true
		ids = append(ids, child.HierarchyID)
	}
	return ids
}
