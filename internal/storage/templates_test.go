package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

func ptr[T any](v T) *T { return &v }

func TestTemplates_CreateAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	fixed, err := repo.CreateTemplate(ctx, core.RecurringTemplate{
		CategoryID: cat, Amount: 90000, DayOfMonth: 1, Note: " rent ", Enabled: true,
	})
	require.NoError(t, err)
	variable, err := repo.CreateTemplate(ctx, core.RecurringTemplate{
		CategoryID: cat, DayOfMonth: 15, Enabled: true, Variable: true,
	})
	require.NoError(t, err)
	_, err = repo.CreateTemplate(ctx, core.RecurringTemplate{
		CategoryID: cat, Amount: 10, DayOfMonth: 28, Enabled: false,
	})
	require.NoError(t, err)

	all, err := repo.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	enabled, err := repo.ListEnabledTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, fixed, enabled[0].ID)
	assert.Equal(t, "rent", enabled[0].Note)
	assert.Equal(t, "Rent", enabled[0].CategoryName)
	assert.Equal(t, variable, enabled[1].ID)
	assert.True(t, enabled[1].Variable)
	assert.Zero(t, enabled[1].Amount)
}

func TestCreateTemplate_Invalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	tests := []struct {
		name string
		tmpl core.RecurringTemplate
		kind error
	}{
		{"fixed without amount", core.RecurringTemplate{CategoryID: cat, DayOfMonth: 1}, core.ErrValidation},
		{"day zero", core.RecurringTemplate{CategoryID: cat, Amount: 1, DayOfMonth: 0}, core.ErrValidation},
		{"day 32", core.RecurringTemplate{CategoryID: cat, Amount: 1, DayOfMonth: 32}, core.ErrValidation},
		{"negative variable", core.RecurringTemplate{CategoryID: cat, Amount: -1, DayOfMonth: 1, Variable: true}, core.ErrValidation},
		{"unknown category", core.RecurringTemplate{CategoryID: 999, Amount: 1, DayOfMonth: 1}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateTemplate(ctx, tt.tmpl)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestUpdateTemplate_Partial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	id, err := repo.CreateTemplate(ctx, core.RecurringTemplate{
		CategoryID: cat, Amount: 500, DayOfMonth: 10, Note: "gym", Enabled: true,
	})
	require.NoError(t, err)

	updated, err := repo.UpdateTemplate(ctx, id, core.TemplatePatch{DayOfMonth: ptr(31), Enabled: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 31, updated.DayOfMonth)
	assert.False(t, updated.Enabled)
	assert.Equal(t, int64(500), updated.Amount)
	assert.Equal(t, "gym", updated.Note)

	// Turning a fixed template into a zero-amount one is only valid as variable.
	_, err = repo.UpdateTemplate(ctx, id, core.TemplatePatch{Amount: ptr(int64(0))})
	assert.ErrorIs(t, err, core.ErrValidation)

	updated, err = repo.UpdateTemplate(ctx, id, core.TemplatePatch{Amount: ptr(int64(0)), Variable: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Variable)

	_, err = repo.UpdateTemplate(ctx, id, core.TemplatePatch{CategoryID: ptr(int64(999))})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.UpdateTemplate(ctx, 999, core.TemplatePatch{Enabled: ptr(true)})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteTemplate_KeepsHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cat := createCategory(t, repo, "Rent", core.Expense)

	id, err := repo.CreateTemplate(ctx, core.RecurringTemplate{
		CategoryID: cat, Amount: 500, DayOfMonth: 10, Enabled: true,
	})
	require.NoError(t, err)

	require.NoError(t, repo.WithinApplyUnit(ctx, func(tx core.ApplyTx) error {
		if _, err := tx.TryMarkApplied(ctx, "2024-01", id); err != nil {
			return err
		}
		_, err := tx.InsertTransaction(ctx, core.NewTransaction{
			MonthKey: "2024-01", CategoryID: cat, Amount: 500, Date: "2024-01-10", TemplateID: &id,
		})
		return err
	}))

	require.NoError(t, repo.DeleteTemplate(ctx, id))
	assert.ErrorIs(t, repo.DeleteTemplate(ctx, id), core.ErrNotFound)

	assert.Equal(t, 1, countRows(t, repo, `SELECT COUNT(*) FROM transactions WHERE recurring_template_id = ?`, id))
	apps, err := repo.ListApplications(ctx, "2024-01")
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}
