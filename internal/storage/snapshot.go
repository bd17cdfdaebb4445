package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"moneytracker/internal/core"
)

// ExportMonth collects the transactions, budgets and goal of a month together with
// the categories they reference.
func (r *SQLiteRepository) ExportMonth(ctx context.Context, month core.MonthKey) (core.MonthSnapshot, error) {
	snap := core.MonthSnapshot{MonthKey: month}

	txs, err := listTransactions(ctx, r.db, month)
	if err != nil {
		return snap, err
	}
	budgets, err := listBudgets(ctx, r.db, month)
	if err != nil {
		return snap, err
	}
	goal, err := getGoal(ctx, r.db, month)
	if err != nil {
		return snap, err
	}
	cats, err := listCategories(ctx, r.db)
	if err != nil {
		return snap, err
	}

	used := make(map[int64]bool)
	for _, t := range txs {
		used[t.CategoryID] = true
	}
	for _, b := range budgets {
		used[b.CategoryID] = true
	}
	for _, c := range cats {
		if used[c.ID] {
			snap.Categories = append(snap.Categories, c)
		}
	}

	snap.Transactions = txs
	snap.Budgets = budgets
	snap.Goal = goal.Amount
	return snap, nil
}

// ImportMonth writes a snapshot into its month in one database transaction.
// Categories are matched by name and type and created when missing. A month that
// already holds transactions is refused with core.ErrConflict unless overwrite is
// set, in which case its transactions, budgets and application records are replaced.
func (r *SQLiteRepository) ImportMonth(ctx context.Context, snap core.MonthSnapshot, overwrite bool) (core.ImportResult, error) {
	res := core.ImportResult{MonthKey: snap.MonthKey}
	month, err := core.ParseMonthKey(string(snap.MonthKey))
	if err != nil {
		return res, err
	}

	err = r.withTx(ctx, "import month", func(tx *sql.Tx) error {
		monthID, err := ensureMonth(ctx, tx, month)
		if err != nil {
			return err
		}

		var existing int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE month_id = ?`, monthID).Scan(&existing); err != nil {
			return storageErr("import month", err)
		}
		if existing > 0 && !overwrite {
			return fmt.Errorf("%w: %s: %w", core.ErrConflict, month, core.ErrMonthNotEmpty)
		}
		if overwrite {
			if err := resetMonth(ctx, tx, month, monthID); err != nil {
				return err
			}
		}

		resolve := categoryResolver(ctx, tx, &res)
		for _, c := range snap.Categories {
			if _, err := resolve(c.Name, c.Type, c.Color); err != nil {
				return err
			}
		}

		for _, t := range snap.Transactions {
			catID, err := resolve(t.CategoryName, t.CategoryType, t.CategoryColor)
			if err != nil {
				return err
			}
			t.MonthKey = month
			t.CategoryID = catID
			if err := validateTransaction(t); err != nil {
				return err
			}
			// A template id from another ledger means nothing here.
			if t.TemplateID != nil {
				ok, err := templateExists(ctx, tx, *t.TemplateID)
				if err != nil {
					return err
				}
				if !ok {
					t.TemplateID = nil
				}
			}
			if _, err := insertTransaction(ctx, tx, core.NewTransaction{
				MonthKey:   month,
				CategoryID: catID,
				Amount:     t.Amount,
				Date:       t.Date,
				Note:       t.Note,
				TemplateID: t.TemplateID,
			}); err != nil {
				return err
			}
			// Restore the run record so the engine does not apply the template again.
			if t.TemplateID != nil {
				if _, err := markApplied(ctx, tx, month, *t.TemplateID); err != nil {
					return err
				}
			}
			res.Transactions++
		}

		for _, b := range snap.Budgets {
			catID, err := resolve(b.CategoryName, b.CategoryType, "")
			if err != nil {
				return err
			}
			b.MonthKey = month
			b.CategoryID = catID
			if err := b.Validate(); err != nil {
				return err
			}
			if err := setBudget(ctx, tx, b); err != nil {
				return err
			}
			res.Budgets++
		}

		return setGoal(ctx, tx, core.Goal{MonthKey: month, Amount: snap.Goal})
	})
	if err != nil {
		return core.ImportResult{MonthKey: month}, err
	}
	return res, nil
}

func resetMonth(ctx context.Context, tx *sql.Tx, month core.MonthKey, monthID int64) error {
	stmts := []struct {
		query string
		arg   any
	}{
		{`DELETE FROM transactions WHERE month_id = ?`, monthID},
		{`DELETE FROM budgets WHERE month_key = ?`, string(month)},
		{`DELETE FROM recurring_runs WHERE month_key = ?`, string(month)},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.arg); err != nil {
			return storageErr("reset month", err)
		}
	}
	return nil
}

// categoryResolver returns a lookup that maps (name, type) to a category id,
// creating the category on first miss and caching the result.
func categoryResolver(ctx context.Context, q queryer, res *core.ImportResult) func(name string, typ core.CategoryType, color string) (int64, error) {
	cache := make(map[string]int64)
	return func(name string, typ core.CategoryType, color string) (int64, error) {
		key := strings.ToLower(strings.TrimSpace(name)) + "|" + string(typ)
		if id, ok := cache[key]; ok {
			return id, nil
		}
		id, ok, err := findCategory(ctx, q, name, typ)
		if err != nil {
			return 0, err
		}
		if !ok {
			id, err = insertCategory(ctx, q, core.Category{Name: name, Type: typ, Color: color})
			if err != nil {
				return 0, err
			}
			res.CategoriesCreated++
		}
		cache[key] = id
		return id, nil
	}
}

func templateExists(ctx context.Context, q queryer, id int64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM recurring_templates WHERE id = ?`, id).Scan(&n); err != nil {
		return false, storageErr("import month", err)
	}
	return n > 0, nil
}
