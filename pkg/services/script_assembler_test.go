package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

func newTestAssembler(t *testing.T, snap *models.ProjectSnapshot, dialectName string) *ScriptAssembler {
	t.Helper()
	return NewScriptAssembler(snap, mustDialect(t, dialectName), DefaultSourceMapping(), DefaultAssemblerConfig())
}

func TestAssembleInsertScript(t *testing.T) {
	a := newTestAssembler(t, plSnapshot(), "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactInsert}, nil)
	require.NoError(t, err)
	require.Empty(t, bundle.NodeErrors)
	require.Empty(t, bundle.KindErrors)

	script, ok := bundle.Scripts[models.ArtifactInsert]
	require.True(t, ok)

	// One INSERT per formula node, dependencies first.
	gp := strings.Index(script, `'GROSS_PROFIT'`)
	oi := strings.Index(script, `'OPERATING_INCOME'`)
	nm := strings.Index(script, `'NET_MARGIN'`)
	require.True(t, gp >= 0 && oi >= 0 && nm >= 0)
	assert.Less(t, gp, oi)
	assert.Less(t, oi, nm)

	// Computed dependencies are read back from the populated target table.
	assert.Contains(t, script, `(SELECT "value" FROM "hierarchy_values" WHERE "hierarchy_id" = 'GROSS_PROFIT')`)
	assert.Contains(t, script, `INSERT INTO "hierarchy_values" ("hierarchy_id", "hierarchy_name", "value")`)
	assert.Contains(t, script, `'Gross Profit'`)
}

func TestAssembleViewScript(t *testing.T) {
	a := newTestAssembler(t, plSnapshot(), "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactView}, nil)
	require.NoError(t, err)

	script := bundle.Scripts[models.ArtifactView]
	require.NotEmpty(t, script)

	assert.True(t, strings.HasPrefix(script, `CREATE OR REPLACE VIEW "hierarchy_master" AS`))
	assert.Contains(t, script, `WITH "GROSS_PROFIT" AS (`)
	assert.Contains(t, script, `"OPERATING_INCOME" AS (`)
	// Dependencies resolve against earlier CTEs, not inlined expressions.
	assert.Contains(t, script, `(SELECT "value" FROM "GROSS_PROFIT")`)
	// All three formula nodes project into the UNION ALL body.
	assert.Contains(t, script, `SELECT 'GROSS_PROFIT' AS "hierarchy_id"`)
	assert.Contains(t, script, `SELECT 'OPERATING_INCOME' AS "hierarchy_id"`)
	assert.Contains(t, script, `SELECT 'NET_MARGIN' AS "hierarchy_id"`)
}

func TestAssembleViewScriptSelection(t *testing.T) {
	a := newTestAssembler(t, plSnapshot(), "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactView}, []string{"NET_MARGIN"})
	require.NoError(t, err)

	script := bundle.Scripts[models.ArtifactView]
	require.NotEmpty(t, script)

	// The closure still defines every dependency as a CTE, but only the
	// selected node is projected.
	assert.Contains(t, script, `WITH "GROSS_PROFIT" AS (`)
	assert.Contains(t, script, `SELECT 'NET_MARGIN' AS "hierarchy_id"`)
	assert.NotContains(t, script, `SELECT 'GROSS_PROFIT' AS "hierarchy_id"`)
	assert.NotContains(t, script, `SELECT 'OPERATING_INCOME' AS "hierarchy_id"`)
}

func TestAssembleMappingView(t *testing.T) {
	a := newTestAssembler(t, plSnapshot(), "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactMappingView}, nil)
	require.NoError(t, err)

	script := bundle.Scripts[models.ArtifactMappingView]
	require.NotEmpty(t, script)

	assert.True(t, strings.HasPrefix(script, `CREATE OR REPLACE VIEW "hierarchy_mapping" AS`))

	// One branch per base leaf feeding the selection, sorted by id.
	cogs := strings.Index(script, `= 'COGS'`)
	opex := strings.Index(script, `= 'OPEX'`)
	revenue := strings.Index(script, `= 'REVENUE'`)
	require.True(t, cogs >= 0 && opex >= 0 && revenue >= 0)
	assert.Less(t, cogs, opex)
	assert.Less(t, opex, revenue)

	// Formula nodes never appear as mapping branches.
	assert.NotContains(t, script, `= 'GROSS_PROFIT'`)
}

func TestAssembleDynamicTable(t *testing.T) {
	t.Run("snowflake renders a dynamic table", func(t *testing.T) {
		a := newTestAssembler(t, plSnapshot(), "snowflake")
		bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactDynamicTable}, nil)
		require.NoError(t, err)

		script := bundle.Scripts[models.ArtifactDynamicTable]
		require.NotEmpty(t, script)
		assert.Contains(t, script, `CREATE OR REPLACE DYNAMIC TABLE "hierarchy_materialized"`)
		assert.Contains(t, script, "TARGET_LAG = 'DOWNSTREAM'")
		assert.Contains(t, script, `WITH "GROSS_PROFIT" AS (`)
	})

	t.Run("mysql reports the kind as unsupported", func(t *testing.T) {
		a := newTestAssembler(t, plSnapshot(), "mysql")
		bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactDynamicTable, models.ArtifactView}, nil)
		require.NoError(t, err)

		_, ok := bundle.Scripts[models.ArtifactDynamicTable]
		assert.False(t, ok)
		assert.Contains(t, bundle.KindErrors[models.ArtifactDynamicTable], "does not support")

		// The failure is isolated; the plain view still renders.
		assert.NotEmpty(t, bundle.Scripts[models.ArtifactView])
	})
}

func TestAssemblePartialFailure(t *testing.T) {
	snap := plSnapshot()
	snap.Nodes["BROKEN"] = &models.HierarchyNode{ID: "BROKEN", Name: "Broken"}
	snap.FormulaGroups["BROKEN"] = &models.FormulaGroup{
		HierarchyID: "BROKEN",
		Rules: []models.FormulaRule{
			{HierarchyID: "MISSING", Operation: models.OperationAdd, Precedence: 1},
		},
	}
	a := newTestAssembler(t, snap, "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactInsert, models.ArtifactView}, nil)
	require.NoError(t, err)

	// The broken node is excluded and reported; healthy nodes still render.
	require.Contains(t, bundle.NodeErrors, "BROKEN")
	assert.Contains(t, bundle.NodeErrors["BROKEN"], "MISSING")

	insert := bundle.Scripts[models.ArtifactInsert]
	assert.Contains(t, insert, `'NET_MARGIN'`)
	assert.NotContains(t, insert, `'BROKEN'`)

	view := bundle.Scripts[models.ArtifactView]
	assert.Contains(t, view, `SELECT 'NET_MARGIN' AS "hierarchy_id"`)
	assert.NotContains(t, view, `"BROKEN" AS (`)
}

func TestAssembleFailedDependencyExcludesDependents(t *testing.T) {
	snap := plSnapshot()
	// Break the bottom of the chain: everything above it must be excluded
	// rather than rendered against a missing CTE or row.
	snap.TotalFormulas["GROSS_PROFIT"].Children = append(
		snap.TotalFormulas["GROSS_PROFIT"].Children,
		models.ChildRef{HierarchyID: "MISSING"},
	)
	a := newTestAssembler(t, snap, "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{models.ArtifactInsert}, nil)
	require.NoError(t, err)

	assert.Contains(t, bundle.NodeErrors, "GROSS_PROFIT")
	assert.Contains(t, bundle.NodeErrors, "OPERATING_INCOME")
	assert.Contains(t, bundle.NodeErrors, "NET_MARGIN")
	// With every node failed the kind itself has nothing to emit.
	assert.Contains(t, bundle.KindErrors, models.ArtifactInsert)
}

func TestAssembleCycleAborts(t *testing.T) {
	nodes := []*models.HierarchyNode{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}}
	groups := []*models.FormulaGroup{
		{HierarchyID: "A", Rules: []models.FormulaRule{{HierarchyID: "B", Operation: models.OperationAdd, Precedence: 1}}},
		{HierarchyID: "B", Rules: []models.FormulaRule{{HierarchyID: "A", Operation: models.OperationAdd, Precedence: 1}}},
	}
	snap := models.NewProjectSnapshot(nodes, nil, groups)
	a := newTestAssembler(t, snap, "postgres")

	_, err := a.Assemble([]models.ArtifactKind{models.ArtifactView}, nil)
	assert.True(t, apperrors.IsCircularDependency(err))
}

func TestAssembleUnknownKind(t *testing.T) {
	a := newTestAssembler(t, plSnapshot(), "postgres")

	bundle, err := a.Assemble([]models.ArtifactKind{"parquet_export"}, nil)
	require.NoError(t, err)
	assert.Empty(t, bundle.Scripts)
	assert.Contains(t, bundle.KindErrors[models.ArtifactKind("parquet_export")], "unknown artifact kind")
}

func TestAssembleDeterministic(t *testing.T) {
	kinds := []models.ArtifactKind{
		models.ArtifactInsert,
		models.ArtifactView,
		models.ArtifactMappingView,
	}

	first, err := newTestAssembler(t, plSnapshot(), "postgres").Assemble(kinds, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := newTestAssembler(t, plSnapshot(), "postgres").Assemble(kinds, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Scripts, again.Scripts)
	}
}
