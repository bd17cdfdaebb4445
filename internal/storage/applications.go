package storage

import (
	"context"
	"database/sql"
	"time"

	"moneytracker/internal/core"
)

// applyTx is the core.ApplyTx handed to the recurring engine. Every statement runs
// on the same *sql.Tx so the run record and the transaction commit together.
type applyTx struct {
	tx *sql.Tx
}

// WithinApplyUnit implements core.ApplyUnitRunner.
func (r *SQLiteRepository) WithinApplyUnit(ctx context.Context, fn func(tx core.ApplyTx) error) error {
	return r.withTx(ctx, "apply unit", func(tx *sql.Tx) error {
		return fn(&applyTx{tx: tx})
	})
}

// TryMarkApplied inserts the (month, template) run record. The composite primary
// key turns a second insert into a no-op, reported as false.
func (a *applyTx) TryMarkApplied(ctx context.Context, month core.MonthKey, templateID int64) (bool, error) {
	return markApplied(ctx, a.tx, month, templateID)
}

func (a *applyTx) InsertTransaction(ctx context.Context, t core.NewTransaction) (int64, error) {
	return insertTransaction(ctx, a.tx, t)
}

func markApplied(ctx context.Context, q queryer, month core.MonthKey, templateID int64) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO recurring_runs (month_key, template_id) VALUES (?, ?)
		ON CONFLICT(month_key, template_id) DO NOTHING`,
		string(month), templateID)
	if err != nil {
		return false, storageErr("mark applied", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("mark applied", err)
	}
	return n == 1, nil
}

// ListApplications returns the run records of a month ordered by template id.
func (r *SQLiteRepository) ListApplications(ctx context.Context, month core.MonthKey) ([]core.ApplicationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month_key, template_id, applied_at FROM recurring_runs
		WHERE month_key = ? ORDER BY template_id`, string(month))
	if err != nil {
		return nil, storageErr("list applications", err)
	}
	defer rows.Close()

	var out []core.ApplicationRecord
	for rows.Next() {
		var rec core.ApplicationRecord
		var mk, at string
		if err := rows.Scan(&mk, &rec.TemplateID, &at); err != nil {
			return nil, storageErr("list applications", err)
		}
		rec.MonthKey = core.MonthKey(mk)
		rec.AppliedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list applications", err)
	}
	return out, nil
}
