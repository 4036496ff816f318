package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/dialect"
	"github.com/finscale/hierarchy-engine/pkg/models"
	"github.com/finscale/hierarchy-engine/pkg/sqlguard"
)

// SourceMapping locates the raw mapped data the generated SQL reads from.
// The actual assignment of source rows to hierarchies is owned by the
// external mapping configuration; the compiler only needs the table shape.
type SourceMapping struct {
	// SourceTable holds one row per mapped source record.
	SourceTable string `json:"source_table"`
	// KeyColumn is the column assigning a row to a hierarchy id.
	KeyColumn string `json:"key_column"`
	// ValueColumn is the numeric column aggregated into node values.
	ValueColumn string `json:"value_column"`
	// ParameterTable qualifies external parameter column references.
	ParameterTable string `json:"parameter_table"`
}

// DefaultSourceMapping returns the mapping used when a project supplies none.
func DefaultSourceMapping() SourceMapping {
	return SourceMapping{
		SourceTable:    "hierarchy_source",
		KeyColumn:      "hierarchy_id",
		ValueColumn:    "amount",
		ParameterTable: "hierarchy_parameters",
	}
}

// RefResolver renders the value expression for a referenced node that
// itself carries a formula. The standalone compiler inlines recursively;
// the script assembler substitutes CTE or target-table references instead.
type RefResolver func(id string) (string, error)

// ExpressionCompiler renders one node's formula as a dialect-specific
// scalar SQL expression. It is pure: the same snapshot, dialect and mapping
// always produce byte-identical SQL.
type ExpressionCompiler struct {
	snap    *models.ProjectSnapshot
	d       dialect.Dialect
	mapping SourceMapping
}

// NewExpressionCompiler creates a compiler for one snapshot and dialect.
func NewExpressionCompiler(snap *models.ProjectSnapshot, d dialect.Dialect, mapping SourceMapping) *ExpressionCompiler {
	return &ExpressionCompiler{snap: snap, d: d, mapping: mapping}
}

// CompileNode renders the node's value as a standalone scalar expression,
// inlining referenced formula nodes recursively. Nodes without a formula
// compile to their base source aggregation.
func (c *ExpressionCompiler) CompileNode(id string) (string, error) {
	visiting := make(map[string]bool)
	var resolve RefResolver
	resolve = func(ref string) (string, error) {
		if visiting[ref] {
			return "", &apperrors.CircularDependencyError{Cycle: []string{ref}}
		}
		visiting[ref] = true
		defer delete(visiting, ref)
		return c.CompileWith(ref, resolve)
	}
	return resolve(id)
}

// CompileWith renders the node's formula using the given resolver for
// formula-bearing references. FormulaGroup wins when a node carries both
// formula kinds; a node with neither compiles to its base value.
func (c *ExpressionCompiler) CompileWith(id string, resolve RefResolver) (string, error) {
	if g, ok := c.snap.FormulaGroups[id]; ok {
		return c.compileGroup(g, resolve)
	}
	if f, ok := c.snap.TotalFormulas[id]; ok {
		return c.compileTotal(f, resolve)
	}
	if !c.snap.HasNode(id) {
		return "", &apperrors.DanglingReferenceError{HierarchyID: id, MissingID: id}
	}
	return c.baseValue(id, models.AggregationSum), nil
}

// baseValue aggregates the node's raw mapped source rows to a scalar.
func (c *ExpressionCompiler) baseValue(id string, agg models.Aggregation) string {
	return fmt.Sprintf("(SELECT %s(%s.%s) FROM %s %s WHERE %s.%s = %s)",
		dialect.AggregateName(string(agg)),
		c.d.QuoteIdentifier("s"), c.d.QuoteIdentifier(c.mapping.ValueColumn),
		c.d.QuoteIdentifier(c.mapping.SourceTable), c.d.QuoteIdentifier("s"),
		c.d.QuoteIdentifier("s"), c.d.QuoteIdentifier(c.mapping.KeyColumn),
		c.d.QuoteLiteral(id))
}

// reference renders a hierarchy operand: formula nodes go through the
// resolver, plain nodes read their mapped source rows, unknown ids are
// dangling.
func (c *ExpressionCompiler) reference(owner, ref string, agg models.Aggregation, resolve RefResolver) (string, error) {
	if c.snap.HasFormula(ref) {
		return resolve(ref)
	}
	if !c.snap.HasNode(ref) {
		return "", &apperrors.DanglingReferenceError{HierarchyID: owner, MissingID: ref}
	}
	return c.baseValue(ref, agg), nil
}

// compileTotal renders aggregation(children) by feeding every child value
// through a UNION ALL row stream, so the standard SQL aggregate names work
// identically on all four dialects.
func (c *ExpressionCompiler) compileTotal(f *models.TotalFormula, resolve RefResolver) (string, error) {
	valueCol := c.d.QuoteIdentifier("value")
	rowAlias := c.d.QuoteIdentifier("v")

	branches := make([]string, 0, len(f.Children))
	seen := make(map[string]bool, len(f.Children))
	for _, child := range f.Children {
		if seen[child.HierarchyID] {
			continue
		}
		seen[child.HierarchyID] = true
		expr, err := c.reference(f.HierarchyID, child.HierarchyID, models.AggregationSum, resolve)
		if err != nil {
			return "", err
		}
		branches = append(branches, fmt.Sprintf("SELECT %s AS %s", expr, valueCol))
	}

	return fmt.Sprintf("(SELECT %s(%s.%s) FROM (%s) %s)",
		dialect.AggregateName(string(f.Aggregation)),
		rowAlias, valueCol,
		strings.Join(branches, " UNION ALL "),
		rowAlias), nil
}

// compileGroup reduces the rules tier by tier in ascending precedence.
// Within a tier rules fold into a running accumulator in list order; a
// finished tier is parenthesized and becomes the sole operand of the next.
// There is no implicit arithmetic precedence between rules.
func (c *ExpressionCompiler) compileGroup(g *models.FormulaGroup, resolve RefResolver) (string, error) {
	rules := make([]models.FormulaRule, len(g.Rules))
	copy(rules, g.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Precedence < rules[j].Precedence })

	acc := ""
	for i, rule := range rules {
		operand, err := c.operand(g.HierarchyID, &rule, resolve)
		if err != nil {
			return "", err
		}

		if acc == "" {
			// The first rule seeds the accumulator; only SUBTRACT changes
			// the seed (a leading negative term).
			if rule.Operation == models.OperationSubtract {
				acc = "(0 - " + operand + ")"
			} else {
				acc = operand
			}
			continue
		}

		if i > 0 && rules[i-1].Precedence != rule.Precedence {
			acc = "(" + acc + ")"
		}

		switch rule.Operation {
		case models.OperationAdd:
			acc = acc + " + " + operand
		case models.OperationSubtract:
			acc = acc + " - " + operand
		case models.OperationMultiply:
			acc = "(" + acc + ") * " + operand
		case models.OperationDivide:
			acc = "(" + c.d.SafeDivide("("+acc+")", operand) + ")"
		default:
			// Aggregate operations reduce their operand to a scalar inside
			// operand(); the reduced term folds additively.
			acc = acc + " + " + operand
		}
	}
	return acc, nil
}

// operand renders the rule's single operand source. Aggregate operations
// apply their function to row-stream operands (base hierarchy rows,
// external tables); scalar operands pass through unchanged.
func (c *ExpressionCompiler) operand(owner string, rule *models.FormulaRule, resolve RefResolver) (string, error) {
	agg := models.AggregationSum
	if rule.Operation.IsAggregate() {
		agg = models.Aggregation(rule.Operation)
	}

	switch {
	case rule.HierarchyID != "":
		return c.reference(owner, rule.HierarchyID, agg, resolve)

	case rule.ConstantNumber != nil:
		return rule.ConstantNumber.String(), nil

	case rule.ParameterReference != "":
		if err := sqlguard.Require("parameterReference", rule.ParameterReference); err != nil {
			return "", fmt.Errorf("rule on %q: %w", owner, err)
		}
		return c.d.QuoteIdentifier(c.mapping.ParameterTable) + "." + c.d.QuoteIdentifier(rule.ParameterReference), nil

	case rule.FormulaRefSource != "":
		if err := sqlguard.Require("formulaRefSource", rule.FormulaRefSource); err != nil {
			return "", fmt.Errorf("rule on %q: %w", owner, err)
		}
		if err := sqlguard.Require("formulaRefTable", rule.FormulaRefTable); err != nil {
			return "", fmt.Errorf("rule on %q: %w", owner, err)
		}
		return fmt.Sprintf("(SELECT %s(%s) FROM %s.%s)",
			dialect.AggregateName(string(agg)),
			c.d.QuoteIdentifier(c.mapping.ValueColumn),
			c.d.QuoteIdentifier(rule.FormulaRefSource),
			c.d.QuoteIdentifier(rule.FormulaRefTable)), nil

	default:
		// Unreachable for validated groups.
		return "", &apperrors.InvalidFormulaError{
			HierarchyID: owner,
			RuleIndex:   -1,
			Reason:      "rule has no operand source",
		}
	}
}
