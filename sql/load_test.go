package sql

import (
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertFunctionsExist(t *testing.T, db *sql.DB, functions []string) {
	t.Helper()
	for _, funcName := range functions {
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "Function %s should exist", funcName)
	}
}

func TestInit(t *testing.T) {
	db := initDB(t)

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		err = Init(db.Instance)
		assert.NoError(t, err)
	})
}

func TestLoadRuleSectionsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load rule sections SQL functions", func(t *testing.T) {
		err := LoadRuleSectionsSql(db.Instance, false)
		assert.NoError(t, err)
		assertFunctionsExist(t, db.Instance, RuleSectionsFunctions)
	})

	t.Run("Load rule sections SQL is idempotent without force", func(t *testing.T) {
		err := LoadRuleSectionsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load rule sections SQL with force reloads", func(t *testing.T) {
		err := LoadRuleSectionsSql(db.Instance, true)
		assert.NoError(t, err)
		assertFunctionsExist(t, db.Instance, RuleSectionsFunctions)
	})

	t.Run("Table is created with the requested dimension", func(t *testing.T) {
		_, err := db.Instance.Exec(`SELECT init_rule_sections(8);`)
		require.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow(`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'rule_sections');`).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "rule_sections table should exist")
	})
}

func TestLoadQueryLogsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load query logs SQL functions", func(t *testing.T) {
		err := LoadQueryLogsSql(db.Instance, false)
		assert.NoError(t, err)
		assertFunctionsExist(t, db.Instance, QueryLogsFunctions)
	})

	t.Run("Load query logs SQL with force reloads", func(t *testing.T) {
		err := LoadQueryLogsSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load all SQL functions", func(t *testing.T) {
		err := LoadAllSql(db.Instance, true)
		require.NoError(t, err)
		assertFunctionsExist(t, db.Instance, RuleSectionsFunctions)
		assertFunctionsExist(t, db.Instance, QueryLogsFunctions)
	})

	t.Run("Load all SQL without force is a no-op", func(t *testing.T) {
		err := LoadAllSql(db.Instance, false)
		assert.NoError(t, err)
	})
}
