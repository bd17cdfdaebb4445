package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"moneytracker/internal/core"
)

// ListCategories returns categories ordered by type then name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return listCategories(ctx, r.db)
}

func listCategories(ctx context.Context, q queryer) ([]core.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, type, color FROM categories ORDER BY type, name`)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Color); err != nil {
			return nil, storageErr("list categories", err)
		}
		c.Type = core.CategoryType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list categories", err)
	}
	return out, nil
}

// GetCategory returns a category by id or core.ErrNotFound.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return getCategory(ctx, r.db, id)
}

func getCategory(ctx context.Context, q queryer, id int64) (core.Category, error) {
	var c core.Category
	var typ string
	err := q.QueryRowContext(ctx, `SELECT id, name, type, color FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &typ, &c.Color)
	if isNoRows(err) {
		return c, notFound("category", id)
	}
	if err != nil {
		return c, storageErr("get category", err)
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

// CreateCategory validates and inserts a category, returning its id.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	return insertCategory(ctx, r.db, c)
}

func insertCategory(ctx context.Context, q queryer, c core.Category) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO categories (name, type, color) VALUES (?, ?, ?)`,
		c.Name, string(c.Type), c.Color)
	if err != nil {
		return 0, storageErr("create category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create category", err)
	}
	return id, nil
}

// UpdateCategory replaces name, type and color of an existing category.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, color = ? WHERE id = ?`,
		c.Name, string(c.Type), c.Color, c.ID)
	if err != nil {
		return storageErr("update category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("category", c.ID)
	}
	return nil
}

// DeleteCategory removes a category. It refuses with core.ErrConflict while any
// transaction or recurring template still references it.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	return r.withTx(ctx, "delete category", func(tx *sql.Tx) error {
		if _, err := getCategory(ctx, tx, id); err != nil {
			return err
		}

		var used int
		if err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ?)
			     + (SELECT COUNT(*) FROM recurring_templates WHERE category_id = ?)`,
			id, id).Scan(&used); err != nil {
			return storageErr("delete category", err)
		}
		if used > 0 {
			return fmt.Errorf("%w: %w", core.ErrConflict, core.ErrCategoryInUse)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return storageErr("delete category", err)
		}
		return nil
	})
}

// findCategory matches by case-insensitive name and type.
func findCategory(ctx context.Context, q queryer, name string, typ core.CategoryType) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE lower(name) = lower(?) AND type = ? ORDER BY id LIMIT 1`,
		strings.TrimSpace(name), string(typ)).Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("find category", err)
	}
	return id, true, nil
}
