package mysql

import "github.com/finscale/hierarchy-engine/pkg/dialect"

func init() {
	dialect.Register(dialect.Dialect{
		Name:            "mysql",
		DisplayName:     "MySQL",
		QuoteIdentifier: dialect.QuoteBacktick,
		QuoteLiteral:    dialect.QuoteSingle,
		SafeDivide:      dialect.CaseDivide,
		// MySQL has no materialized views; the dynamic-table artifact is
		// unsupported and callers must deploy the plain view instead.
		MaterializedTable: nil,
		ViewDDL: func(name string) string {
			return "CREATE OR REPLACE VIEW " + dialect.QuoteBacktick(name)
		},
	})
}
