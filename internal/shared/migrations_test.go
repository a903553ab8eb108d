package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("parseMigrationName", func(t *testing.T) {
		tests := []struct {
			file      string
			version   int
			name      string
			direction string
			ok        bool
		}{
			{"0000_player_state_up.sql", 0, "player_state", "up", true},
			{"0001_search_history_down.sql", 1, "search_history", "down", true},
			{"0002_missing_direction.sql", 0, "", "", false},
			{"abcd_bad_up.sql", 0, "", "", false},
			{"README.md", 0, "", "", false},
		}

		for _, tt := range tests {
			t.Run(tt.file, func(t *testing.T) {
				version, name, direction, ok := parseMigrationName(tt.file)
				assert.Equal(t, tt.ok, ok)
				assert.Equal(t, tt.version, version)
				assert.Equal(t, tt.name, name)
				assert.Equal(t, tt.direction, direction)
			})
		}
	})

	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		require.NoError(t, err)
		require.NotEmpty(t, migrations)

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			assert.NotEmpty(t, m.Up, "migration %d missing up SQL", m.Version)
			assert.NotEmpty(t, m.Down, "migration %d missing down SQL", m.Version)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, RunMigrations(db))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, 2, count)

		_, err = db.Exec("SELECT key, value FROM player_state LIMIT 1")
		assert.NoError(t, err, "player_state table should exist after migrations")

		_, err = db.Exec("SELECT query FROM search_history LIMIT 1")
		assert.NoError(t, err, "search_history table should exist after migrations")

		require.NoError(t, RollbackMigration(db))

		var newCount int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&newCount))
		assert.Equal(t, count-1, newCount)

		_, err = db.Exec("SELECT query FROM search_history LIMIT 1")
		assert.Error(t, err, "search_history should be dropped by rollback")

		require.NoError(t, RollbackMigration(db))
		assert.Error(t, RollbackMigration(db), "nothing left to roll back")
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, RunMigrations(db))
		require.NoError(t, RunMigrations(db))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("splitStatements", func(t *testing.T) {
		script := `-- header
CREATE TABLE a (id INTEGER); -- trailing
CREATE INDEX idx ON a(id);
`
		stmts := splitStatements(script)
		require.Len(t, stmts, 2)
		assert.Equal(t, "CREATE TABLE a (id INTEGER)", stmts[0])
		assert.Equal(t, "CREATE INDEX idx ON a(id)", stmts[1])
	})
}
