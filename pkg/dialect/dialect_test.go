package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/dialect"

	_ "github.com/finscale/hierarchy-engine/pkg/dialect/mysql"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/postgres"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/snowflake"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/sqlserver"
)

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"my table"`, dialect.QuoteDouble("my table"))
	assert.Equal(t, `"a""b"`, dialect.QuoteDouble(`a"b`))
	assert.Equal(t, "`my table`", dialect.QuoteBacktick("my table"))
	assert.Equal(t, "`a``b`", dialect.QuoteBacktick("a`b"))
	assert.Equal(t, "[my table]", dialect.QuoteBracket("my table"))
	assert.Equal(t, "[a]]b]", dialect.QuoteBracket("a]b"))
	assert.Equal(t, "'it''s'", dialect.QuoteSingle("it's"))
}

func TestCaseDivide(t *testing.T) {
	got := dialect.CaseDivide("a", "b")
	assert.Equal(t, "CASE WHEN b = 0 THEN NULL ELSE a / b END", got)
}

func TestAggregateName(t *testing.T) {
	assert.Equal(t, "AVG", dialect.AggregateName("AVERAGE"))
	assert.Equal(t, "SUM", dialect.AggregateName("SUM"))
	assert.Equal(t, "COUNT", dialect.AggregateName("COUNT"))
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"snowflake", "postgres", "mysql", "sqlserver"} {
		d, err := dialect.Get(name)
		require.NoError(t, err, "dialect %s", name)
		assert.Equal(t, name, d.Name)
		assert.True(t, dialect.IsRegistered(name))
	}

	_, err := dialect.Get("oracle")
	assert.ErrorIs(t, err, apperrors.ErrUnknownDialect)
	assert.False(t, dialect.IsRegistered("oracle"))
}

func TestRegisteredSortedWithCapabilities(t *testing.T) {
	infos := dialect.Registered()
	require.Len(t, infos, 4)

	names := make([]string, len(infos))
	supports := make(map[string]bool, len(infos))
	for i, info := range infos {
		names[i] = info.Name
		supports[info.Name] = info.SupportsDynamicTable
	}

	assert.Equal(t, []string{"mysql", "postgres", "snowflake", "sqlserver"}, names)
	assert.True(t, supports["snowflake"])
	assert.True(t, supports["postgres"])
	assert.False(t, supports["mysql"])
	assert.False(t, supports["sqlserver"])
}

func TestMaterializedTableRendering(t *testing.T) {
	snowflake, err := dialect.Get("snowflake")
	require.NoError(t, err)
	ddl, err := snowflake.RenderMaterializedTable("hierarchy_materialized", "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, ddl, `CREATE OR REPLACE DYNAMIC TABLE "hierarchy_materialized"`)
	assert.Contains(t, ddl, "TARGET_LAG = 'DOWNSTREAM'")

	postgres, err := dialect.Get("postgres")
	require.NoError(t, err)
	ddl, err = postgres.RenderMaterializedTable("hierarchy_materialized", "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, ddl, `DROP MATERIALIZED VIEW IF EXISTS "hierarchy_materialized"`)
	assert.Contains(t, ddl, `CREATE MATERIALIZED VIEW "hierarchy_materialized" AS`)

	mysql, err := dialect.Get("mysql")
	require.NoError(t, err)
	_, err = mysql.RenderMaterializedTable("hierarchy_materialized", "SELECT 1")
	assert.True(t, apperrors.IsUnsupportedOperation(err))
}

func TestViewDDL(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"snowflake", `CREATE OR REPLACE VIEW "hierarchy_master"`},
		{"postgres", `CREATE OR REPLACE VIEW "hierarchy_master"`},
		{"mysql", "CREATE OR REPLACE VIEW `hierarchy_master`"},
		{"sqlserver", "CREATE OR ALTER VIEW [hierarchy_master]"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := dialect.Get(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.ViewDDL("hierarchy_master"))
		})
	}
}
