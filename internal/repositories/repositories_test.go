package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

type keyedStore interface {
	models.StateStore
	Keys() ([]string, error)
}

func TestStateStores(t *testing.T) {
	stores := map[string]func(t *testing.T) keyedStore{
		"sqlite": func(t *testing.T) keyedStore { return NewStateRepository(setupTestDB(t)) },
		"memory": func(t *testing.T) keyedStore { return NewMemoryStore() },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				s := open(t)
				v, ok, err := s.Get(models.KeyQueue)
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Empty(t, v)
			})

			t.Run("set then overwrite", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Set(models.KeyVolume, "0.5"))
				require.NoError(t, s.Set(models.KeyVolume, "0.9"))

				v, ok, err := s.Get(models.KeyVolume)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "0.9", v)
			})

			t.Run("delete is idempotent", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Set(models.KeyShuffle, "true"))
				require.NoError(t, s.Delete(models.KeyShuffle))
				require.NoError(t, s.Delete(models.KeyShuffle))

				_, ok, err := s.Get(models.KeyShuffle)
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("keys are sorted", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Set(models.KeyRepeat, "all"))
				require.NoError(t, s.Set(models.KeyCheckpoint, "{}"))

				keys, err := s.Keys()
				require.NoError(t, err)
				assert.Equal(t, []string{models.KeyCheckpoint, models.KeyRepeat}, keys)
			})
		})
	}
}

func TestStateRepositoryClear(t *testing.T) {
	repo := NewStateRepository(setupTestDB(t))
	for _, k := range models.StateKeys {
		require.NoError(t, repo.Set(k, "x"))
	}

	require.NoError(t, repo.Clear())
	keys, err := repo.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStateRepositoryClosedDB(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepository(db)
	db.Close()

	_, _, err := repo.Get(models.KeyQueue)
	assert.ErrorContains(t, err, "failed to read state")
	assert.ErrorContains(t, repo.Set(models.KeyQueue, "[]"), "failed to write state")
	assert.ErrorContains(t, repo.Delete(models.KeyQueue), "failed to delete state")
}

func TestHistoryRepository(t *testing.T) {
	t.Run("Recent lists newest first", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		for i, q := range []string{"daft punk", "boards of canada", "aphex twin"} {
			at := base.Add(time.Duration(i) * time.Minute)
			repo.now = func() time.Time { return at }
			require.NoError(t, repo.Record(q, i+1))
		}

		entries, err := repo.Recent(2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "aphex twin", entries[0].Query)
		assert.Equal(t, 3, entries[0].ResultCount)
		assert.Equal(t, "boards of canada", entries[1].Query)
		assert.True(t, entries[0].SearchedAt.Equal(base.Add(2*time.Minute)))
	})

	t.Run("blank queries are ignored", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		require.NoError(t, repo.Record("   ", 4))

		entries, err := repo.Recent(0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		require.NoError(t, repo.Record("one", 1))
		require.NoError(t, repo.Record("two", 0))

		n, err := repo.Clear()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
