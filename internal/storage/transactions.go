package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"moneytracker/internal/core"
)

const transactionColumns = `
	t.id, m.month_key, t.category_id, t.amount, t.tdate, t.note, t.recurring_template_id,
	c.name, c.type, c.color`

const transactionJoins = `
	FROM transactions t
	JOIN months m ON m.id = t.month_id
	JOIN categories c ON c.id = t.category_id`

// CreateTransaction validates and inserts a manual transaction, creating its month if needed.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := validateTransaction(t); err != nil {
		return 0, err
	}
	var id int64
	err := r.withTx(ctx, "create transaction", func(tx *sql.Tx) error {
		if _, err := getCategory(ctx, tx, t.CategoryID); err != nil {
			return err
		}
		var err error
		id, err = insertTransaction(ctx, tx, core.NewTransaction{
			MonthKey:   t.MonthKey,
			CategoryID: t.CategoryID,
			Amount:     t.Amount,
			Date:       t.Date,
			Note:       t.Note,
		})
		return err
	})
	return id, err
}

func validateTransaction(t core.Transaction) error {
	if _, err := core.ParseMonthKey(string(t.MonthKey)); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if !strings.HasPrefix(t.Date, string(t.MonthKey)+"-") {
		return fmt.Errorf("%w: date %s is outside month %s", core.ErrValidation, t.Date, t.MonthKey)
	}
	return nil
}

func insertTransaction(ctx context.Context, q queryer, t core.NewTransaction) (int64, error) {
	monthID, err := ensureMonth(ctx, q, t.MonthKey)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (month_id, category_id, amount, tdate, note, recurring_template_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		monthID, t.CategoryID, t.Amount, t.Date, t.Note, nullableID(t.TemplateID))
	if err != nil {
		return 0, storageErr("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert transaction", err)
	}
	return id, nil
}

// UpdateTransaction replaces category, amount, date and note. The month is fixed
// at creation; the new date must stay within it.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return r.withTx(ctx, "update transaction", func(tx *sql.Tx) error {
		current, err := getTransaction(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		t.MonthKey = current.MonthKey
		if err := validateTransaction(t); err != nil {
			return err
		}
		if _, err := getCategory(ctx, tx, t.CategoryID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET category_id = ?, amount = ?, tdate = ?, note = ? WHERE id = ?`,
			t.CategoryID, t.Amount, t.Date, t.Note, t.ID); err != nil {
			return storageErr("update transaction", err)
		}
		return nil
	})
}

// DeleteTransaction removes a transaction. Deleting a recurring-generated row does
// not reopen its template for the month.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete transaction", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("transaction", id)
	}
	return nil
}

// GetTransaction returns one transaction with its category details.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, r.db, id)
}

func getTransaction(ctx context.Context, q queryer, id int64) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+transactionJoins+` WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if isNoRows(err) {
		return t, notFound("transaction", id)
	}
	if err != nil {
		return t, storageErr("get transaction", err)
	}
	return t, nil
}

// ListTransactions returns a month's transactions, newest date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, month core.MonthKey) ([]core.Transaction, error) {
	return listTransactions(ctx, r.db, month)
}

func listTransactions(ctx context.Context, q queryer, month core.MonthKey) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+transactionColumns+transactionJoins+`
		WHERE m.month_key = ?
		ORDER BY t.tdate DESC, t.id DESC`, string(month))
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("list transactions", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var month, typ string
	var tmpl sql.NullInt64
	if err := s.Scan(&t.ID, &month, &t.CategoryID, &t.Amount, &t.Date, &t.Note, &tmpl,
		&t.CategoryName, &typ, &t.CategoryColor); err != nil {
		return t, err
	}
	t.MonthKey = core.MonthKey(month)
	t.CategoryType = core.CategoryType(typ)
	t.TemplateID = idPtr(tmpl)
	return t, nil
}
