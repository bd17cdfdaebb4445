package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

func TestMonthTrends(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pay := createCategory(t, repo, "Pay", core.Income)
	food := createCategory(t, repo, "Food", core.Expense)

	for _, tx := range []core.Transaction{
		{MonthKey: "2024-01", CategoryID: pay, Amount: 3000, Date: "2024-01-01"},
		{MonthKey: "2024-01", CategoryID: food, Amount: 400, Date: "2024-01-05"},
		{MonthKey: "2024-02", CategoryID: food, Amount: 250, Date: "2024-02-05"},
		{MonthKey: "2024-03", CategoryID: pay, Amount: 3100, Date: "2024-03-01"},
	} {
		_, err := repo.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}
	_, err := repo.EnsureMonth(ctx, "2024-04")
	require.NoError(t, err)
	require.NoError(t, repo.SetGoal(ctx, core.Goal{MonthKey: "2024-03", Amount: 500}))

	trends, err := repo.MonthTrends(ctx, 3)
	require.NoError(t, err)
	require.Len(t, trends, 3)

	assert.Equal(t, core.MonthTrend{MonthKey: "2024-02", Expenses: 250}, trends[0])
	assert.Equal(t, core.MonthTrend{MonthKey: "2024-03", Income: 3100, SavingsGoal: 500}, trends[1])
	assert.Equal(t, core.MonthTrend{MonthKey: "2024-04"}, trends[2], "months without transactions report zeros")

	all, err := repo.MonthTrends(ctx, 12)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, core.MonthTrend{MonthKey: "2024-01", Income: 3000, Expenses: 400}, all[0])
}

func TestMonthTrends_RejectsBadWindow(t *testing.T) {
	repo := newTestRepo(t)
	for _, n := range []int{0, -1, MaxTrendMonths + 1} {
		_, err := repo.MonthTrends(context.Background(), n)
		assert.ErrorIs(t, err, core.ErrValidation, "n=%d", n)
	}
}
