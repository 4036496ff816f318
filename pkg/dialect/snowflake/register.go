package snowflake

import (
	"fmt"

	"github.com/finscale/hierarchy-engine/pkg/dialect"
)

func init() {
	dialect.Register(dialect.Dialect{
		Name:              "snowflake",
		DisplayName:       "Snowflake",
		QuoteIdentifier:   dialect.QuoteDouble,
		QuoteLiteral:      dialect.QuoteSingle,
		SafeDivide:        dialect.CaseDivide,
		MaterializedTable: dynamicTable,
		ViewDDL: func(name string) string {
			return "CREATE OR REPLACE VIEW " + dialect.QuoteDouble(name)
		},
	})
}

// dynamicTable renders a Snowflake dynamic table. TARGET_LAG = 'DOWNSTREAM'
// defers the refresh schedule to consumers; the warehouse is a deployment
// placeholder substituted by the connection layer.
func dynamicTable(name, selectBody string) string {
	return fmt.Sprintf(
		"CREATE OR REPLACE DYNAMIC TABLE %s\n  TARGET_LAG = 'DOWNSTREAM'\n  WAREHOUSE = {{warehouse}}\nAS\n%s",
		dialect.QuoteDouble(name), selectBody)
}
