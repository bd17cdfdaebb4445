package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

func TestTransactions_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	id1, err := repo.CreateTransaction(ctx, core.Transaction{
		MonthKey: "2024-01", CategoryID: cat, Amount: 1000, Date: "2024-01-05", Note: "jan rent",
	})
	require.NoError(t, err)
	id2, err := repo.CreateTransaction(ctx, core.Transaction{
		MonthKey: "2024-01", CategoryID: cat, Amount: 50, Date: "2024-01-20",
	})
	require.NoError(t, err)

	txs, err := repo.ListTransactions(ctx, "2024-01")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, id2, txs[0].ID, "newest date first")
	assert.Equal(t, "Rent", txs[1].CategoryName)
	assert.Equal(t, core.Expense, txs[1].CategoryType)
	assert.Nil(t, txs[1].TemplateID)

	tx, err := repo.GetTransaction(ctx, id1)
	require.NoError(t, err)
	tx.Amount = 1200
	tx.Date = "2024-01-06"
	require.NoError(t, repo.UpdateTransaction(ctx, tx))

	tx, err = repo.GetTransaction(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), tx.Amount)
	assert.Equal(t, "2024-01-06", tx.Date)

	require.NoError(t, repo.DeleteTransaction(ctx, id1))
	_, err = repo.GetTransaction(ctx, id1)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, id1), core.ErrNotFound)
}

func TestCreateTransaction_Invalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	tests := []struct {
		name string
		tx   core.Transaction
		kind error
	}{
		{"bad month", core.Transaction{MonthKey: "2024-13", CategoryID: cat, Amount: 1, Date: "2024-13-01"}, core.ErrValidation},
		{"zero amount", core.Transaction{MonthKey: "2024-01", CategoryID: cat, Amount: 0, Date: "2024-01-01"}, core.ErrValidation},
		{"date outside month", core.Transaction{MonthKey: "2024-01", CategoryID: cat, Amount: 1, Date: "2024-02-01"}, core.ErrValidation},
		{"impossible date", core.Transaction{MonthKey: "2024-02", CategoryID: cat, Amount: 1, Date: "2024-02-30"}, core.ErrValidation},
		{"unknown category", core.Transaction{MonthKey: "2024-01", CategoryID: 999, Amount: 1, Date: "2024-01-01"}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateTransaction(ctx, tt.tx)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	assert.Zero(t, countRows(t, repo, `SELECT COUNT(*) FROM transactions`))
}

func TestUpdateTransaction_KeepsMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		MonthKey: "2024-01", CategoryID: cat, Amount: 10, Date: "2024-01-01",
	})
	require.NoError(t, err)

	err = repo.UpdateTransaction(ctx, core.Transaction{
		ID: id, MonthKey: "2024-02", CategoryID: cat, Amount: 10, Date: "2024-02-01",
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}
