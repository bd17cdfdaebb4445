package storage

import (
	"context"
	"fmt"

	"moneytracker/internal/core"
)

// MaxTrendMonths caps how far back MonthTrends looks.
const MaxTrendMonths = 24

// MonthTrends returns income, expenses and goal for the n most recent known
// months, oldest first.
func (r *SQLiteRepository) MonthTrends(ctx context.Context, n int) ([]core.MonthTrend, error) {
	if n < 1 || n > MaxTrendMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", core.ErrValidation, MaxTrendMonths)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT month_key, income, expenses, goal FROM (
			SELECT m.month_key AS month_key,
				COALESCE(SUM(CASE WHEN c.type = 'income' THEN t.amount END), 0) AS income,
				COALESCE(SUM(CASE WHEN c.type = 'expense' THEN t.amount END), 0) AS expenses,
				COALESCE((SELECT g.amount FROM goals g WHERE g.month_key = m.month_key), 0) AS goal
			FROM months m
			LEFT JOIN transactions t ON t.month_id = m.id
			LEFT JOIN categories c ON c.id = t.category_id
			GROUP BY m.id, m.month_key
			ORDER BY m.month_key DESC
			LIMIT ?
		) ORDER BY month_key ASC`, n)
	if err != nil {
		return nil, storageErr("month trends", err)
	}
	defer rows.Close()

	var out []core.MonthTrend
	for rows.Next() {
		var mt core.MonthTrend
		var key string
		if err := rows.Scan(&key, &mt.Income, &mt.Expenses, &mt.SavingsGoal); err != nil {
			return nil, storageErr("month trends", err)
		}
		mt.MonthKey = core.MonthKey(key)
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("month trends", err)
	}
	return out, nil
}
