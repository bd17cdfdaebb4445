package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
	"moneytracker/internal/storage"
)

func sampleSnapshot() core.MonthSnapshot {
	tmpl := int64(3)
	return core.MonthSnapshot{
		MonthKey:   "2024-02",
		Categories: []core.Category{{ID: 4, Name: "Rent", Type: core.Expense, Color: "#E02020"}},
		Transactions: []core.Transaction{
			{ID: 11, MonthKey: "2024-02", Date: "2024-02-29", Amount: 90000, Note: "Rent, flat 2", TemplateID: &tmpl,
				CategoryName: "Rent", CategoryType: core.Expense},
			{ID: 10, MonthKey: "2024-02", Date: "2024-02-10", Amount: 4550, Note: "weekly shop",
				CategoryName: "Groceries", CategoryType: core.Expense},
		},
		Budgets: []core.Budget{{MonthKey: "2024-02", CategoryID: 4, Amount: 100000, CategoryName: "Rent", CategoryType: core.Expense}},
		Goal:    25000,
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"))
}

func TestWriteJSON_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, FromSnapshot(sampleSnapshot())))
	newGoldie(t).Assert(t, "month_2024_02.json", buf.Bytes())
}

func TestWriteCSV_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FromSnapshot(sampleSnapshot())))
	newGoldie(t).Assert(t, "month_2024_02.csv", buf.Bytes())
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, FromSnapshot(sampleSnapshot())))

	doc, err := ReadJSON(&buf)
	require.NoError(t, err)
	snap, err := doc.Snapshot()
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 2)
	require.NotNil(t, snap.Transactions[0].TemplateID)
	assert.Equal(t, int64(3), *snap.Transactions[0].TemplateID)
	assert.Nil(t, snap.Transactions[1].TemplateID)
	assert.Equal(t, "Groceries", snap.Transactions[1].CategoryName)
	assert.Equal(t, core.Expense, snap.Budgets[0].CategoryType)
}

func TestReadJSON_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"unknown field":  `{"month_key":"2024-01","extra":1}`,
		"future version": `{"version":9,"month_key":"2024-01"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(body))
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestSnapshot_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  MonthExport
	}{
		{"bad month", MonthExport{MonthKey: "2024-13"}},
		{"negative goal", MonthExport{MonthKey: "2024-01", Goal: -1}},
		{"bad category type", MonthExport{MonthKey: "2024-01", Categories: []CategoryRecord{{Name: "X", Type: "other"}}}},
		{"transaction without category", MonthExport{MonthKey: "2024-01", Transactions: []TransactionRecord{{Date: "2024-01-01", Type: "expense", Amount: 1}}}},
		{"bad template id", MonthExport{MonthKey: "2024-01", Transactions: []TransactionRecord{{Date: "2024-01-01", Category: "X", Type: "expense", Amount: 1, TemplateID: "abc"}}}},
		{"negative budget", MonthExport{MonthKey: "2024-01", Budgets: []BudgetRecord{{Category: "X", Type: "expense", Amount: -5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Snapshot()
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestReadCSV(t *testing.T) {
	in := "date,category,type,amount,note,template_id\n2024-02-03,Food,Expense,1200,lunch,\n"
	doc, err := ReadCSV(strings.NewReader(in), "2024-02")
	require.NoError(t, err)
	require.Len(t, doc.Transactions, 1)

	snap, err := doc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, core.Expense, snap.Transactions[0].CategoryType)
	assert.Equal(t, int64(1200), snap.Transactions[0].Amount)

	_, err = ReadCSV(strings.NewReader(in), "2024")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()
	src, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	defer src.Close()
	dst, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "dst.db"))
	require.NoError(t, err)
	defer dst.Close()

	_, err = src.ImportMonth(ctx, sampleSnapshot(), false)
	require.NoError(t, err)

	doc, err := NewService(src, nil).Export(ctx, "2024-02")
	require.NoError(t, err)
	assert.Len(t, doc.Transactions, 2)
	assert.Len(t, doc.Categories, 2, "Rent plus Groceries from the seeded defaults")

	res, err := NewService(dst, nil).Import(ctx, doc, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Transactions)
	assert.Equal(t, 1, res.CategoriesCreated, "Groceries matches the seeded category")

	_, err = NewService(dst, nil).Import(ctx, doc, false)
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = NewService(dst, nil).Export(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrValidation)
}
