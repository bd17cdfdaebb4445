package amqp

import (
	"context"

	"moneytracker/internal/core"
)

// Publisher is the publishing side of Client.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, event *TransactionEvent) error
}

// Notifier adapts a Publisher to core.TransactionNotifier.
type Notifier struct {
	pub Publisher
}

var _ core.TransactionNotifier = (*Notifier)(nil)

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) TransactionCreated(ctx context.Context, id int64, month core.MonthKey, source string) error {
	return n.pub.PublishTransactionEvent(ctx, NewTransactionEvent(id, string(month), source))
}
