package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

// plSnapshot builds a small P&L project used across the engine tests:
//
//	GROSS_PROFIT     = SUM(REVENUE, COGS)            (total formula)
//	OPERATING_INCOME = GROSS_PROFIT - OPEX           (formula group)
//	NET_MARGIN       = OPERATING_INCOME / REVENUE    (formula group, two tiers)
func plSnapshot() *models.ProjectSnapshot {
	nodes := []*models.HierarchyNode{
		{ID: "REVENUE", Name: "Revenue"},
		{ID: "COGS", Name: "Cost of Goods Sold"},
		{ID: "OPEX", Name: "Operating Expenses"},
		{ID: "GROSS_PROFIT", Name: "Gross Profit"},
		{ID: "OPERATING_INCOME", Name: "Operating Income"},
		{ID: "NET_MARGIN", Name: "Net Margin"},
	}
	totals := []*models.TotalFormula{
		{
			HierarchyID: "GROSS_PROFIT",
			Aggregation: models.AggregationSum,
			Children:    []models.ChildRef{{HierarchyID: "REVENUE"}, {HierarchyID: "COGS"}},
		},
	}
	groups := []*models.FormulaGroup{
		{
			HierarchyID: "OPERATING_INCOME",
			Rules: []models.FormulaRule{
				{HierarchyID: "GROSS_PROFIT", Operation: models.OperationAdd, Precedence: 1},
				{HierarchyID: "OPEX", Operation: models.OperationSubtract, Precedence: 1},
			},
		},
		{
			HierarchyID: "NET_MARGIN",
			Rules: []models.FormulaRule{
				{HierarchyID: "OPERATING_INCOME", Operation: models.OperationAdd, Precedence: 1},
				{HierarchyID: "REVENUE", Operation: models.OperationDivide, Precedence: 2},
			},
		},
	}
	return models.NewProjectSnapshot(nodes, totals, groups)
}

func TestResolveEvaluationOrder(t *testing.T) {
	snap := plSnapshot()

	resolved, err := ResolveEvaluationOrder(snap)
	require.NoError(t, err)

	assert.Equal(t, []string{"GROSS_PROFIT", "OPERATING_INCOME", "NET_MARGIN"}, resolved.Order)
	assert.Equal(t, map[string]int{
		"REVENUE":          0,
		"COGS":             0,
		"OPEX":             0,
		"GROSS_PROFIT":     1,
		"OPERATING_INCOME": 2,
		"NET_MARGIN":       3,
	}, resolved.Ranks)
}

func TestResolveEvaluationOrderTiesBrokenByID(t *testing.T) {
	// Three independent totals over the same leaves: order must be their
	// sorted ids regardless of map iteration.
	nodes := []*models.HierarchyNode{
		{ID: "LEAF", Name: "Leaf"},
	}
	totals := []*models.TotalFormula{
		{HierarchyID: "C_TOTAL", Aggregation: models.AggregationSum, Children: []models.ChildRef{{HierarchyID: "LEAF"}}},
		{HierarchyID: "A_TOTAL", Aggregation: models.AggregationSum, Children: []models.ChildRef{{HierarchyID: "LEAF"}}},
		{HierarchyID: "B_TOTAL", Aggregation: models.AggregationSum, Children: []models.ChildRef{{HierarchyID: "LEAF"}}},
	}
	snap := models.NewProjectSnapshot(nodes, totals, nil)

	for i := 0; i < 10; i++ {
		resolved, err := ResolveEvaluationOrder(snap)
		require.NoError(t, err)
		assert.Equal(t, []string{"A_TOTAL", "B_TOTAL", "C_TOTAL"}, resolved.Order)
	}
}

func TestResolveEvaluationOrderDanglingReferenceIsLeaf(t *testing.T) {
	// A reference to an id that is not in the project does not block
	// ordering; the compiler reports it per node instead.
	snap := models.NewProjectSnapshot(nil, nil, []*models.FormulaGroup{
		{
			HierarchyID: "BROKEN",
			Rules: []models.FormulaRule{
				{HierarchyID: "MISSING", Operation: models.OperationAdd, Precedence: 1},
			},
		},
	})

	resolved, err := ResolveEvaluationOrder(snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"BROKEN"}, resolved.Order)
	// Missing ids never appear in the rank map.
	assert.NotContains(t, resolved.Ranks, "MISSING")
}

func TestResolveEvaluationOrderCycle(t *testing.T) {
	nodes := []*models.HierarchyNode{
		{ID: "A", Name: "A"},
		{ID: "B", Name: "B"},
	}
	groups := []*models.FormulaGroup{
		{HierarchyID: "A", Rules: []models.FormulaRule{{HierarchyID: "B", Operation: models.OperationAdd, Precedence: 1}}},
		{HierarchyID: "B", Rules: []models.FormulaRule{{HierarchyID: "A", Operation: models.OperationAdd, Precedence: 1}}},
	}
	snap := models.NewProjectSnapshot(nodes, nil, groups)

	_, err := ResolveEvaluationOrder(snap)
	require.Error(t, err)

	var cycleErr *apperrors.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B"}, cycleErr.Cycle)
}

func TestResolveEvaluationOrderSelfCycle(t *testing.T) {
	nodes := []*models.HierarchyNode{{ID: "A", Name: "A"}}
	groups := []*models.FormulaGroup{
		{HierarchyID: "A", Rules: []models.FormulaRule{{HierarchyID: "A", Operation: models.OperationAdd, Precedence: 1}}},
	}
	snap := models.NewProjectSnapshot(nodes, nil, groups)

	_, err := ResolveEvaluationOrder(snap)
	require.Error(t, err)

	var cycleErr *apperrors.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A"}, cycleErr.Cycle)
}

func TestDependencyClosure(t *testing.T) {
	snap := plSnapshot()
	resolved, err := ResolveEvaluationOrder(snap)
	require.NoError(t, err)

	t.Run("selecting the top pulls everything below", func(t *testing.T) {
		closure := DependencyClosure(snap, resolved.Order, []string{"NET_MARGIN"})
		assert.Equal(t, []string{"GROSS_PROFIT", "OPERATING_INCOME", "NET_MARGIN"}, closure)
	})

	t.Run("selecting the bottom pulls nothing extra", func(t *testing.T) {
		closure := DependencyClosure(snap, resolved.Order, []string{"GROSS_PROFIT"})
		assert.Equal(t, []string{"GROSS_PROFIT"}, closure)
	})

	t.Run("leaf selection contributes nothing", func(t *testing.T) {
		closure := DependencyClosure(snap, resolved.Order, []string{"REVENUE"})
		assert.Empty(t, closure)
	})
}
