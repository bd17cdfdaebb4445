package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

// newTestRepo opens a migrated repository on a fresh temp database.
func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createCategory(t *testing.T, repo *SQLiteRepository, name string, typ core.CategoryType) int64 {
	t.Helper()
	id, err := repo.CreateCategory(context.Background(), core.Category{Name: name, Type: typ})
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, repo *SQLiteRepository, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, repo.db.QueryRow(query, args...).Scan(&n))
	return n
}
