package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/sheets"
)

func TestStore_AppendAndLookup(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendRow(ctx, sheets.TransactionRow{TransactionID: 5, MonthKey: "2024-01", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	ok, err := s.HasTransaction(ctx, "2024-01", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasTransaction(ctx, "2024-02", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, s.Rows(), 1)
}
