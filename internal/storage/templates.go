package storage

import (
	"context"
	"database/sql"
	"strings"

	"moneytracker/internal/core"
)

const templateSelect = `
	SELECT rt.id, rt.category_id, rt.amount, rt.day_of_month, rt.note, rt.enabled, rt.variable,
	       c.name, c.type, c.color
	FROM recurring_templates rt
	JOIN categories c ON c.id = rt.category_id`

// CreateTemplate adds a template to the catalogue after validating it and
// checking its category exists.
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error) {
	t.Note = strings.TrimSpace(t.Note)
	if err := t.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.withTx(ctx, "create template", func(tx *sql.Tx) error {
		var err error
		id, err = insertTemplate(ctx, tx, t)
		return err
	})
	return id, err
}

func insertTemplate(ctx context.Context, q queryer, t core.RecurringTemplate) (int64, error) {
	if _, err := getCategory(ctx, q, t.CategoryID); err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO recurring_templates (category_id, amount, day_of_month, note, enabled, variable)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.CategoryID, t.Amount, t.DayOfMonth, t.Note, t.Enabled, t.Variable)
	if err != nil {
		return 0, storageErr("create template", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create template", err)
	}
	return id, nil
}

// UpdateTemplate applies a partial update. Only the fields set in patch change; the
// merged template must still be valid. Months already applied keep their transactions.
func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, id int64, patch core.TemplatePatch) (core.RecurringTemplate, error) {
	var updated core.RecurringTemplate
	err := r.withTx(ctx, "update template", func(tx *sql.Tx) error {
		current, err := getTemplate(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Note != nil {
			n := strings.TrimSpace(*patch.Note)
			patch.Note = &n
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return err
		}
		if next.CategoryID != current.CategoryID {
			if _, err := getCategory(ctx, tx, next.CategoryID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE recurring_templates
			SET category_id = ?, amount = ?, day_of_month = ?, note = ?, enabled = ?, variable = ?
			WHERE id = ?`,
			next.CategoryID, next.Amount, next.DayOfMonth, next.Note, next.Enabled, next.Variable, id); err != nil {
			return storageErr("update template", err)
		}
		updated, err = getTemplate(ctx, tx, id)
		return err
	})
	return updated, err
}

// DeleteTemplate removes a template. Its transactions and application records stay.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete template", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("template", id)
	}
	return nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	return getTemplate(ctx, r.db, id)
}

func getTemplate(ctx context.Context, q queryer, id int64) (core.RecurringTemplate, error) {
	t, err := scanTemplate(q.QueryRowContext(ctx, templateSelect+` WHERE rt.id = ?`, id))
	if isNoRows(err) {
		return t, notFound("template", id)
	}
	if err != nil {
		return t, storageErr("get template", err)
	}
	return t, nil
}

// ListTemplates returns the whole catalogue ordered by id.
func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.listTemplates(ctx, templateSelect+` ORDER BY rt.id`)
}

// ListEnabledTemplates implements core.TemplateLister.
func (r *SQLiteRepository) ListEnabledTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.listTemplates(ctx, templateSelect+` WHERE rt.enabled = 1 ORDER BY rt.id`)
}

func (r *SQLiteRepository) listTemplates(ctx context.Context, query string) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list templates", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, storageErr("list templates", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list templates", err)
	}
	return out, nil
}

func scanTemplate(s rowScanner) (core.RecurringTemplate, error) {
	var t core.RecurringTemplate
	var typ string
	err := s.Scan(&t.ID, &t.CategoryID, &t.Amount, &t.DayOfMonth, &t.Note, &t.Enabled, &t.Variable,
		&t.CategoryName, &typ, &t.CategoryColor)
	t.CategoryType = core.CategoryType(typ)
	return t, err
}
