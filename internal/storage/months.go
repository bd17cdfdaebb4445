package storage

import (
	"context"

	"moneytracker/internal/core"
)

// EnsureMonth returns the id of month, creating the row when absent.
func (r *SQLiteRepository) EnsureMonth(ctx context.Context, month core.MonthKey) (int64, error) {
	return ensureMonth(ctx, r.db, month)
}

func ensureMonth(ctx context.Context, q queryer, month core.MonthKey) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO months (month_key) VALUES (?) ON CONFLICT(month_key) DO NOTHING`,
		string(month)); err != nil {
		return 0, storageErr("ensure month", err)
	}

	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM months WHERE month_key = ?`, string(month)).Scan(&id); err != nil {
		return 0, storageErr("ensure month", err)
	}
	return id, nil
}

// ListMonths returns every known month, newest first.
func (r *SQLiteRepository) ListMonths(ctx context.Context) ([]core.MonthKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month_key FROM months ORDER BY month_key DESC`)
	if err != nil {
		return nil, storageErr("list months", err)
	}
	defer rows.Close()

	var months []core.MonthKey
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, storageErr("list months", err)
		}
		months = append(months, core.MonthKey(k))
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list months", err)
	}
	return months, nil
}
