package storage

import (
	"context"
	"database/sql"
	"fmt"

	"moneytracker/internal/core"
)

// ListBudgets returns the budgets of a month with their category names.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, month core.MonthKey) ([]core.Budget, error) {
	return listBudgets(ctx, r.db, month)
}

func listBudgets(ctx context.Context, q queryer, month core.MonthKey) ([]core.Budget, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT b.month_key, b.category_id, b.amount, c.name, c.type
		FROM budgets b
		JOIN categories c ON c.id = b.category_id
		WHERE b.month_key = ?
		ORDER BY c.name`, string(month))
	if err != nil {
		return nil, storageErr("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var mk, typ string
		if err := rows.Scan(&mk, &b.CategoryID, &b.Amount, &b.CategoryName, &typ); err != nil {
			return nil, storageErr("list budgets", err)
		}
		b.MonthKey = core.MonthKey(mk)
		b.CategoryType = core.CategoryType(typ)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list budgets", err)
	}
	return out, nil
}

// SetBudget upserts the budget of one category for a month.
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, "set budget", func(tx *sql.Tx) error {
		if _, err := getCategory(ctx, tx, b.CategoryID); err != nil {
			return err
		}
		return setBudget(ctx, tx, b)
	})
}

func setBudget(ctx context.Context, q queryer, b core.Budget) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO budgets (month_key, category_id, amount) VALUES (?, ?, ?)
		ON CONFLICT(month_key, category_id) DO UPDATE SET amount = excluded.amount`,
		string(b.MonthKey), b.CategoryID, b.Amount); err != nil {
		return storageErr("set budget", err)
	}
	return nil
}

// DeleteBudget clears the budget of a category for a month.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, month core.MonthKey, categoryID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE month_key = ? AND category_id = ?`, string(month), categoryID)
	if err != nil {
		return storageErr("delete budget", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: no budget for category %d in %s", core.ErrNotFound, categoryID, month)
	}
	return nil
}

// CopyBudgets copies the budgets of from into to, leaving categories already
// budgeted in to untouched. It returns how many rows were copied.
func (r *SQLiteRepository) CopyBudgets(ctx context.Context, from, to core.MonthKey) (int, error) {
	if from == to {
		return 0, fmt.Errorf("%w: source and target month are the same", core.ErrValidation)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (month_key, category_id, amount)
		SELECT ?, category_id, amount FROM budgets WHERE month_key = ?
		ON CONFLICT(month_key, category_id) DO NOTHING`,
		string(to), string(from))
	if err != nil {
		return 0, storageErr("copy budgets", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("copy budgets", err)
	}
	return int(n), nil
}
