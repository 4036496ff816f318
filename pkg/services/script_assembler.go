package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finscale/hierarchy-engine/pkg/dialect"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

// AssemblerConfig names the deployable objects the assembler emits.
type AssemblerConfig struct {
	// TargetTable receives rows from the INSERT population script.
	TargetTable string `json:"target_table"`
	// ViewName is the master view holding all selected hierarchies.
	ViewName string `json:"view_name"`
	// MappingViewName is the mapping-expansion view over raw source rows.
	MappingViewName string `json:"mapping_view_name"`
	// DynamicTableName is the materialized rendition of the master view.
	DynamicTableName string `json:"dynamic_table_name"`
}

// DefaultAssemblerConfig returns the object names used when the caller
// supplies none.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		TargetTable:      "hierarchy_values",
		ViewName:         "hierarchy_master",
		MappingViewName:  "hierarchy_mapping",
		DynamicTableName: "hierarchy_materialized",
	}
}

// ScriptBundle is the output of one Assemble call. Scripts holds one text
// blob per successfully rendered kind; failures are collected instead of
// aborting unrelated work.
type ScriptBundle struct {
	Scripts map[models.ArtifactKind]string `json:"scripts"`
	// NodeErrors maps hierarchy id to the compile failure that excluded it
	// (dangling references surface here, per node, non-fatal).
	NodeErrors map[string]string `json:"node_errors,omitempty"`
	// KindErrors maps an artifact kind to the reason it could not be
	// rendered at all (e.g. materialization on a dialect without it).
	KindErrors map[models.ArtifactKind]string `json:"kind_errors,omitempty"`
}

// ScriptAssembler combines compiled per-node expressions into deployable
// SQL artifacts. Like the compiler it is pure text generation; execution
// belongs to the external connection layer.
type ScriptAssembler struct {
	snap     *models.ProjectSnapshot
	d        dialect.Dialect
	mapping  SourceMapping
	cfg      AssemblerConfig
	compiler *ExpressionCompiler
}

// NewScriptAssembler creates an assembler for one snapshot and dialect.
func NewScriptAssembler(snap *models.ProjectSnapshot, d dialect.Dialect, mapping SourceMapping, cfg AssemblerConfig) *ScriptAssembler {
	return &ScriptAssembler{
		snap:     snap,
		d:        d,
		mapping:  mapping,
		cfg:      cfg,
		compiler: NewExpressionCompiler(snap, d, mapping),
	}
}

// Assemble renders the requested artifact kinds for the selected nodes
// (nil or empty selects every formula-bearing node). The snapshot must form
// a DAG: a cycle anywhere aborts the whole call.
func (a *ScriptAssembler) Assemble(kinds []models.ArtifactKind, nodeIDs []string) (*ScriptBundle, error) {
	resolved, err := ResolveEvaluationOrder(a.snap)
	if err != nil {
		return nil, err
	}

	selected := nodeIDs
	if len(selected) == 0 {
		selected = resolved.Order
	}
	closure := DependencyClosure(a.snap, resolved.Order, selected)

	bundle := &ScriptBundle{
		Scripts:    make(map[models.ArtifactKind]string),
		NodeErrors: make(map[string]string),
		KindErrors: make(map[models.ArtifactKind]string),
	}

	selectedSet := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	for _, kind := range kinds {
		var script string
		var err error
		switch kind {
		case models.ArtifactInsert:
			script, err = a.insertScript(closure, bundle.NodeErrors)
		case models.ArtifactView:
			script, err = a.viewScript(closure, selectedSet, bundle.NodeErrors)
		case models.ArtifactMappingView:
			script, err = a.mappingViewScript(closure, selected)
		case models.ArtifactDynamicTable:
			script, err = a.dynamicTableScript(closure, selectedSet, bundle.NodeErrors)
		default:
			err = fmt.Errorf("unknown artifact kind %q", kind)
		}
		if err != nil {
			bundle.KindErrors[kind] = err.Error()
			continue
		}
		bundle.Scripts[kind] = script
	}

	if len(bundle.NodeErrors) == 0 {
		bundle.NodeErrors = nil
	}
	if len(bundle.KindErrors) == 0 {
		bundle.KindErrors = nil
	}
	return bundle, nil
}

// insertScript emits one INSERT per node in dependency order. Computed
// nodes read previously inserted rows back from the target table, so the
// statements are safe to execute top to bottom.
func (a *ScriptAssembler) insertScript(closure []string, nodeErrors map[string]string) (string, error) {
	target := a.d.QuoteIdentifier(a.cfg.TargetTable)
	idCol := a.d.QuoteIdentifier("hierarchy_id")
	nameCol := a.d.QuoteIdentifier("hierarchy_name")
	valueCol := a.d.QuoteIdentifier("value")

	inserted := make(map[string]bool, len(closure))
	resolve := func(ref string) (string, error) {
		if !inserted[ref] {
			return "", fmt.Errorf("dependency %q was not populated", ref)
		}
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s)",
			valueCol, target, idCol, a.d.QuoteLiteral(ref)), nil
	}

	var statements []string
	for _, id := range closure {
		expr, err := a.compiler.CompileWith(id, resolve)
		if err != nil {
			nodeErrors[id] = err.Error()
			continue
		}
		inserted[id] = true
		statements = append(statements, fmt.Sprintf(
			"INSERT INTO %s (%s, %s, %s)\nSELECT %s, %s, %s;",
			target, idCol, nameCol, valueCol,
			a.d.QuoteLiteral(id), a.d.QuoteLiteral(a.snap.NodeName(id)), expr))
	}
	if len(statements) == 0 {
		return "", fmt.Errorf("no node compiled successfully")
	}
	return strings.Join(statements, "\n\n") + "\n", nil
}

// viewBody renders the WITH chain plus the final UNION ALL projection.
// Shared by the view and dynamic-table artifacts.
func (a *ScriptAssembler) viewBody(closure []string, selectedSet map[string]bool, nodeErrors map[string]string) (string, error) {
	valueCol := a.d.QuoteIdentifier("value")
	idCol := a.d.QuoteIdentifier("hierarchy_id")
	nameCol := a.d.QuoteIdentifier("hierarchy_name")

	compiled := make(map[string]bool, len(closure))
	resolve := func(ref string) (string, error) {
		// References point at earlier CTEs; dependency order guarantees
		// the CTE exists by the time it is referenced, unless the
		// dependency itself failed to compile.
		if !compiled[ref] {
			return "", fmt.Errorf("dependency %q failed to compile", ref)
		}
		return fmt.Sprintf("(SELECT %s FROM %s)", valueCol, a.d.QuoteIdentifier(ref)), nil
	}

	var ctes []string
	var projections []string
	for _, id := range closure {
		expr, err := a.compiler.CompileWith(id, resolve)
		if err != nil {
			nodeErrors[id] = err.Error()
			continue
		}
		compiled[id] = true
		ctes = append(ctes, fmt.Sprintf("%s AS (\n  SELECT %s AS %s\n)",
			a.d.QuoteIdentifier(id), expr, valueCol))
		if selectedSet[id] {
			projections = append(projections, fmt.Sprintf(
				"SELECT %s AS %s, %s AS %s, (SELECT %s FROM %s) AS %s",
				a.d.QuoteLiteral(id), idCol,
				a.d.QuoteLiteral(a.snap.NodeName(id)), nameCol,
				valueCol, a.d.QuoteIdentifier(id), valueCol))
		}
	}

	if len(projections) == 0 {
		return "", fmt.Errorf("no selected node compiled successfully")
	}
	return fmt.Sprintf("WITH %s\n%s", strings.Join(ctes, ",\n"), strings.Join(projections, "\nUNION ALL\n")), nil
}

func (a *ScriptAssembler) viewScript(closure []string, selectedSet map[string]bool, nodeErrors map[string]string) (string, error) {
	body, err := a.viewBody(closure, selectedSet, nodeErrors)
	if err != nil {
		return "", err
	}
	return a.d.ViewDDL(a.cfg.ViewName) + " AS\n" + body + ";\n", nil
}

func (a *ScriptAssembler) dynamicTableScript(closure []string, selectedSet map[string]bool, nodeErrors map[string]string) (string, error) {
	body, err := a.viewBody(closure, selectedSet, nodeErrors)
	if err != nil {
		return "", err
	}
	ddl, err := a.d.RenderMaterializedTable(a.cfg.DynamicTableName, body)
	if err != nil {
		return "", err
	}
	return ddl + ";\n", nil
}

// mappingViewScript expands raw source rows into per-hierarchy assignments:
// one UNION ALL branch per base node feeding the selection (leaf references
// plus selected nodes that carry no formula), sorted by id.
func (a *ScriptAssembler) mappingViewScript(closure []string, selected []string) (string, error) {
	baseSet := make(map[string]bool)
	for _, id := range closure {
		for _, ref := range a.snap.ReferencedIDs(id) {
			if !a.snap.HasFormula(ref) && a.snap.HasNode(ref) {
				baseSet[ref] = true
			}
		}
	}
	for _, id := range selected {
		if !a.snap.HasFormula(id) && a.snap.HasNode(id) {
			baseSet[id] = true
		}
	}
	if len(baseSet) == 0 {
		return "", fmt.Errorf("selection references no mapped base nodes")
	}

	base := make([]string, 0, len(baseSet))
	for id := range baseSet {
		base = append(base, id)
	}
	sort.Strings(base)

	idCol := a.d.QuoteIdentifier("hierarchy_id")
	nameCol := a.d.QuoteIdentifier("hierarchy_name")
	valueCol := a.d.QuoteIdentifier("value")
	srcAlias := a.d.QuoteIdentifier("s")
	srcTable := a.d.QuoteIdentifier(a.mapping.SourceTable)
	srcKey := a.d.QuoteIdentifier(a.mapping.KeyColumn)
	srcValue := a.d.QuoteIdentifier(a.mapping.ValueColumn)

	branches := make([]string, 0, len(base))
	for _, id := range base {
		branches = append(branches, fmt.Sprintf(
			"SELECT %s AS %s, %s AS %s, %s.%s AS %s\nFROM %s %s\nWHERE %s.%s = %s",
			a.d.QuoteLiteral(id), idCol,
			a.d.QuoteLiteral(a.snap.NodeName(id)), nameCol,
			srcAlias, srcValue, valueCol,
			srcTable, srcAlias,
			srcAlias, srcKey, a.d.QuoteLiteral(id)))
	}

	return a.d.ViewDDL(a.cfg.MappingViewName) + " AS\n" +
		strings.Join(branches, "\nUNION ALL\n") + ";\n", nil
}
