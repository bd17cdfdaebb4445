package storage

import (
	"context"
	"fmt"

	"moneytracker/internal/core"
)

// EnsureGoalRow creates a zero savings goal for month when none exists.
func (r *SQLiteRepository) EnsureGoalRow(ctx context.Context, month core.MonthKey) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (month_key, amount) VALUES (?, 0) ON CONFLICT(month_key) DO NOTHING`,
		string(month)); err != nil {
		return storageErr("ensure goal row", err)
	}
	return nil
}

// GetGoal returns the savings goal for month, zero when unset.
func (r *SQLiteRepository) GetGoal(ctx context.Context, month core.MonthKey) (core.Goal, error) {
	return getGoal(ctx, r.db, month)
}

func getGoal(ctx context.Context, q queryer, month core.MonthKey) (core.Goal, error) {
	g := core.Goal{MonthKey: month}
	err := q.QueryRowContext(ctx, `SELECT amount FROM goals WHERE month_key = ?`, string(month)).Scan(&g.Amount)
	if err != nil && !isNoRows(err) {
		return g, storageErr("get goal", err)
	}
	return g, nil
}

// SetGoal upserts the savings goal for a month.
func (r *SQLiteRepository) SetGoal(ctx context.Context, g core.Goal) error {
	return setGoal(ctx, r.db, g)
}

func setGoal(ctx context.Context, q queryer, g core.Goal) error {
	if g.Amount < 0 {
		return fmt.Errorf("%w: goal amount cannot be negative", core.ErrValidation)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO goals (month_key, amount) VALUES (?, ?)
		ON CONFLICT(month_key) DO UPDATE SET amount = excluded.amount`,
		string(g.MonthKey), g.Amount); err != nil {
		return storageErr("set goal", err)
	}
	return nil
}
