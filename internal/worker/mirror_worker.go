// Package worker mirrors ledger transactions into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"moneytracker/internal/amqp"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/recurring"
	"moneytracker/internal/sheets"
)

// SourceBackfill tags backfilled rows that no template produced.
const SourceBackfill = "backfill"

// Ledger is the read side of storage the worker needs.
type Ledger interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, month core.MonthKey) ([]core.Transaction, error)
}

// MirrorWorker appends each announced transaction to the mirror exactly once.
type MirrorWorker struct {
	ledger Ledger
	rows   sheets.RowWriter
	logger *log.Logger
}

func NewMirrorWorker(ledger Ledger, rows sheets.RowWriter, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		ledger: ledger,
		rows:   rows,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler. Transactions deleted since the event was
// published are skipped; any other failure is returned so the event is requeued.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	logger := w.logger.With(
		log.FieldMessageID, ev.MessageID,
		log.FieldTxID, ev.TransactionID)

	tx, err := w.ledger.GetTransaction(ctx, ev.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, "Transaction no longer exists, skipping event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", ev.TransactionID, err)
	}
	if ev.MonthKey != "" && ev.MonthKey != string(tx.MonthKey) {
		logger.WarnContext(ctx, "Event month differs from stored transaction",
			"event_month", ev.MonthKey,
			log.FieldMonthKey, string(tx.MonthKey))
	}

	appended, err := w.mirror(ctx, tx, ev.Source)
	if err != nil {
		return err
	}
	if appended {
		logger.InfoContext(ctx, "Mirrored transaction", log.FieldMonthKey, string(tx.MonthKey))
	} else {
		logger.DebugContext(ctx, "Transaction already mirrored")
	}
	return nil
}

// BackfillMonth mirrors every transaction of month that the mirror lacks. It is
// the recovery path for events lost while the worker was down.
func (w *MirrorWorker) BackfillMonth(ctx context.Context, month core.MonthKey) (int, error) {
	txs, err := w.ledger.ListTransactions(ctx, month)
	if err != nil {
		return 0, fmt.Errorf("list transactions %s: %w", month, err)
	}

	added := 0
	// Oldest first so the sheet reads chronologically.
	for i := len(txs) - 1; i >= 0; i-- {
		source := SourceBackfill
		if txs[i].TemplateID != nil {
			source = recurring.EventSource
		}
		ok, err := w.mirror(ctx, txs[i], source)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}

	w.logger.InfoContext(ctx, "Backfill complete",
		log.FieldMonthKey, string(month),
		"checked", len(txs),
		"added", added)
	return added, nil
}

func (w *MirrorWorker) mirror(ctx context.Context, tx core.Transaction, source string) (bool, error) {
	exists, err := w.rows.HasTransaction(ctx, tx.MonthKey, tx.ID)
	if err != nil {
		return false, fmt.Errorf("check mirror for transaction %d: %w", tx.ID, err)
	}
	if exists {
		return false, nil
	}
	if _, err := w.rows.AppendRow(ctx, sheets.RowFromTransaction(tx, source)); err != nil {
		return false, fmt.Errorf("append transaction %d: %w", tx.ID, err)
	}
	return true, nil
}
