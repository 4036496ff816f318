package sqlserver

import "github.com/finscale/hierarchy-engine/pkg/dialect"

func init() {
	dialect.Register(dialect.Dialect{
		Name:            "sqlserver",
		DisplayName:     "Microsoft SQL Server",
		QuoteIdentifier: dialect.QuoteBracket,
		QuoteLiteral:    dialect.QuoteSingle,
		SafeDivide:      dialect.CaseDivide,
		// Indexed views carry restrictions (schema binding, no outer UNION)
		// that the generated master view violates, so there is no
		// materialization rendering for SQL Server.
		MaterializedTable: nil,
		ViewDDL: func(name string) string {
			return "CREATE OR ALTER VIEW " + dialect.QuoteBracket(name)
		},
	})
}
