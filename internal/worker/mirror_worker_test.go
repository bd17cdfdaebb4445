package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/amqp"
	"moneytracker/internal/core"
	"moneytracker/internal/recurring"
	"moneytracker/internal/sheets"
	"moneytracker/internal/sheets/memory"
)

type fakeLedger struct {
	txs map[int64]core.Transaction
	err error
}

func (f *fakeLedger) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	tx, ok := f.txs[id]
	if !ok {
		return tx, fmt.Errorf("%w: transaction %d", core.ErrNotFound, id)
	}
	return tx, nil
}

func (f *fakeLedger) ListTransactions(ctx context.Context, month core.MonthKey) ([]core.Transaction, error) {
	var out []core.Transaction
	// newest first, like storage
	for id := int64(len(f.txs)); id >= 1; id-- {
		if tx, ok := f.txs[id]; ok && tx.MonthKey == month {
			out = append(out, tx)
		}
	}
	return out, nil
}

type failingRows struct{ sheets.RowWriter }

func (failingRows) AppendRow(ctx context.Context, row sheets.TransactionRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func ledgerWith(txs ...core.Transaction) *fakeLedger {
	l := &fakeLedger{txs: map[int64]core.Transaction{}}
	for _, tx := range txs {
		l.txs[tx.ID] = tx
	}
	return l
}

func TestHandleEvent_MirrorsOnce(t *testing.T) {
	rows := memory.New()
	w := NewMirrorWorker(ledgerWith(core.Transaction{
		ID: 1, MonthKey: "2024-01", Date: "2024-01-05", Amount: 1250, CategoryName: "Food", CategoryType: core.Expense,
	}), rows, nil)
	ev := amqp.NewTransactionEvent(1, "2024-01", "api")

	require.NoError(t, w.HandleEvent(context.Background(), ev))
	require.NoError(t, w.HandleEvent(context.Background(), ev), "redelivery is harmless")

	got := rows.Rows()
	require.Len(t, got, 1)
	assert.Equal(t, "api", got[0].Source)
	assert.Equal(t, int64(1250), got[0].Amount)
}

func TestHandleEvent_DeletedTransactionSkipped(t *testing.T) {
	rows := memory.New()
	w := NewMirrorWorker(ledgerWith(), rows, nil)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewTransactionEvent(99, "2024-01", "api")))
	assert.Empty(t, rows.Rows())
}

func TestHandleEvent_FailuresRequeue(t *testing.T) {
	t.Run("storage", func(t *testing.T) {
		ledger := &fakeLedger{err: fmt.Errorf("%w: locked", core.ErrStorage)}
		w := NewMirrorWorker(ledger, memory.New(), nil)
		err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(1, "2024-01", "api"))
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("sheet", func(t *testing.T) {
		w := NewMirrorWorker(ledgerWith(core.Transaction{ID: 1, MonthKey: "2024-01"}), failingRows{memory.New()}, nil)
		err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(1, "2024-01", "api"))
		assert.ErrorContains(t, err, "quota exceeded")
	})
}

func TestBackfillMonth(t *testing.T) {
	tmpl := int64(4)
	rows := memory.New()
	ledger := ledgerWith(
		core.Transaction{ID: 1, MonthKey: "2024-01", Date: "2024-01-01", TemplateID: &tmpl},
		core.Transaction{ID: 2, MonthKey: "2024-01", Date: "2024-01-02"},
		core.Transaction{ID: 3, MonthKey: "2024-02", Date: "2024-02-01"},
	)
	w := NewMirrorWorker(ledger, rows, nil)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewTransactionEvent(2, "2024-01", "api")))

	added, err := w.BackfillMonth(context.Background(), "2024-01")
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	got := rows.Rows()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[1].TransactionID)
	assert.Equal(t, recurring.EventSource, got[1].Source)
}

func TestMirrorWorker_BackfillTagsManualRows(t *testing.T) {
	tmpl := int64(4)
	rows := memory.New()
	ledger := ledgerWith(
		core.Transaction{ID: 5, MonthKey: "2024-03", Date: "2024-03-01", TemplateID: &tmpl},
		core.Transaction{ID: 6, MonthKey: "2024-03", Date: "2024-03-02"},
	)

	added, err := NewMirrorWorker(ledger, rows, nil).BackfillMonth(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	sources := map[int64]string{}
	for _, r := range rows.Rows() {
		sources[r.TransactionID] = r.Source
	}
	assert.Equal(t, map[int64]string{5: recurring.EventSource, 6: SourceBackfill}, sources)
}
