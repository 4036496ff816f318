package postgres

import (
	"fmt"

	"github.com/finscale/hierarchy-engine/pkg/dialect"
)

func init() {
	dialect.Register(dialect.Dialect{
		Name:              "postgres",
		DisplayName:       "PostgreSQL",
		QuoteIdentifier:   dialect.QuoteDouble,
		QuoteLiteral:      dialect.QuoteSingle,
		SafeDivide:        dialect.CaseDivide,
		MaterializedTable: materializedView,
		ViewDDL: func(name string) string {
			return "CREATE OR REPLACE VIEW " + dialect.QuoteDouble(name)
		},
	})
}

// materializedView drops and recreates because Postgres has no
// CREATE OR REPLACE for materialized views. Refresh is scheduled externally
// (REFRESH MATERIALIZED VIEW via cron or the deployment layer).
func materializedView(name, selectBody string) string {
	quoted := dialect.QuoteDouble(name)
	return fmt.Sprintf(
		"DROP MATERIALIZED VIEW IF EXISTS %s;\nCREATE MATERIALIZED VIEW %s AS\n%s",
		quoted, quoted, selectBody)
}
