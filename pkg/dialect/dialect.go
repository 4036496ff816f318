// Package dialect models each target SQL database as a fixed capability
// record: identifier quoting, literal quoting, the NULL-safe division guard,
// and optional materialization DDL. The compiler consumes the record through
// plain function fields instead of branching on a dialect name.
package dialect

import "github.com/finscale/hierarchy-engine/pkg/apperrors"

// Dialect is the capability record for one target database.
type Dialect struct {
	// Name is the registry key ("snowflake", "postgres", "mysql", "sqlserver").
	Name string
	// DisplayName is the human-readable label for UI discovery.
	DisplayName string

	// QuoteIdentifier quotes a table/column/schema name, escaping any
	// embedded quoting characters.
	QuoteIdentifier func(name string) string

	// QuoteLiteral quotes a string literal, doubling embedded quotes.
	QuoteLiteral func(value string) string

	// SafeDivide renders a division that evaluates to NULL instead of
	// failing when the divisor is zero.
	SafeDivide func(numerator, denominator string) string

	// MaterializedTable renders the DDL materializing selectBody under name.
	// Nil when the dialect has no declarative materialization.
	MaterializedTable func(name, selectBody string) string

	// ViewDDL renders the view-creation prefix for name ("CREATE OR REPLACE
	// VIEW ...", "CREATE OR ALTER VIEW ..."). The select body is appended by
	// the assembler after " AS\n".
	ViewDDL func(name string) string
}

// AggregateName maps an aggregation label used by formulas to the SQL
// function name. All supported dialects share the standard names; AVERAGE
// maps to AVG.
func AggregateName(label string) string {
	if label == "AVERAGE" {
		return "AVG"
	}
	return label
}

// RenderMaterializedTable renders the materialization DDL or returns
// UnsupportedOperation when the dialect lacks the capability.
func (d Dialect) RenderMaterializedTable(name, selectBody string) (string, error) {
	if d.MaterializedTable == nil {
		return "", &apperrors.UnsupportedOperationError{
			Dialect: d.Name,
			Feature: "dynamic/materialized tables",
		}
	}
	return d.MaterializedTable(name, selectBody), nil
}
