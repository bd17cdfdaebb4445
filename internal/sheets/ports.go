// Package sheets defines the spreadsheet mirror of the ledger.
package sheets

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// Header is the first row of a mirror sheet.
var Header = []any{"ID", "Month", "Date", "Category", "Type", "Amount", "Note", "Source"}

// TransactionRow is one mirrored transaction.
type TransactionRow struct {
	TransactionID int64
	MonthKey      core.MonthKey
	Date          string
	Category      string
	Type          core.CategoryType
	Amount        int64 // minor units
	Note          string
	Source        string
}

// RowWriter appends transaction rows to a mirror.
type RowWriter interface {
	// AppendRow writes row and returns a reference to where it landed.
	AppendRow(ctx context.Context, row TransactionRow) (rowRef string, err error)
	// HasTransaction reports whether the mirror for month already holds id.
	HasTransaction(ctx context.Context, month core.MonthKey, id int64) (bool, error)
}

func RowFromTransaction(t core.Transaction, source string) TransactionRow {
	return TransactionRow{
		TransactionID: t.ID,
		MonthKey:      t.MonthKey,
		Date:          t.Date,
		Category:      t.CategoryName,
		Type:          t.CategoryType,
		Amount:        t.Amount,
		Note:          t.Note,
		Source:        source,
	}
}

// Values renders the row in Header order. Amounts are written in major units
// with two decimals so the sheet can sum them.
func (r TransactionRow) Values() []any {
	return []any{
		strconv.FormatInt(r.TransactionID, 10),
		string(r.MonthKey),
		r.Date,
		r.Category,
		string(r.Type),
		FormatAmount(r.Amount),
		r.Note,
		r.Source,
	}
}

// FormatAmount renders minor units as a decimal string, 12345 -> "123.45".
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
