package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

func TestCategories_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateCategory(ctx, core.Category{Name: "  Rent ", Type: core.Expense})
	require.NoError(t, err)

	c, err := repo.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Rent", c.Name)
	assert.Equal(t, core.DefaultCategoryColor, c.Color)

	c.Name = "Housing"
	c.Color = "#000000"
	require.NoError(t, repo.UpdateCategory(ctx, c))

	c, err = repo.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Housing", c.Name)

	require.NoError(t, repo.DeleteCategory(ctx, id))
	_, err = repo.GetCategory(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCategories_Validation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateCategory(ctx, core.Category{Name: "", Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = repo.CreateCategory(ctx, core.Category{Name: "X", Type: "transfer"})
	assert.ErrorIs(t, err, core.ErrValidation)

	err = repo.UpdateCategory(ctx, core.Category{ID: 999, Name: "X", Type: core.Income})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteCategory(ctx, 999), core.ErrNotFound)
}

func TestDeleteCategory_InUse(t *testing.T) {
	ctx := context.Background()

	t.Run("referenced by transaction", func(t *testing.T) {
		repo := newTestRepo(t)
		cat := createCategory(t, repo, "Rent", core.Expense)
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			MonthKey: "2024-01", CategoryID: cat, Amount: 100, Date: "2024-01-02",
		})
		require.NoError(t, err)

		err = repo.DeleteCategory(ctx, cat)
		assert.ErrorIs(t, err, core.ErrConflict)
		assert.ErrorIs(t, err, core.ErrCategoryInUse)
	})

	t.Run("referenced by template", func(t *testing.T) {
		repo := newTestRepo(t)
		cat := createCategory(t, repo, "Rent", core.Expense)
		_, err := repo.CreateTemplate(ctx, core.RecurringTemplate{
			CategoryID: cat, Amount: 100, DayOfMonth: 1, Enabled: true,
		})
		require.NoError(t, err)

		assert.ErrorIs(t, repo.DeleteCategory(ctx, cat), core.ErrConflict)
	})
}
