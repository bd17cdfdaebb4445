package core

import "context"

// Ports consumed by the recurring engine.
type (
	// NewTransaction is what the engine asks the ledger to write.
	NewTransaction struct {
		MonthKey   MonthKey
		CategoryID int64
		Amount     int64
		Date       string
		Note       string
		TemplateID *int64
	}

	// ApplyTx is one failure-atomic unit: the application record and the derived
	// transaction commit together or not at all.
	ApplyTx interface {
		// TryMarkApplied inserts the (month, template) record and reports whether this
		// call created it. An existing record is not an error.
		TryMarkApplied(ctx context.Context, month MonthKey, templateID int64) (bool, error)
		InsertTransaction(ctx context.Context, t NewTransaction) (int64, error)
	}

	// TemplateLister returns the enabled templates in ascending id order.
	TemplateLister interface {
		ListEnabledTemplates(ctx context.Context) ([]RecurringTemplate, error)
	}

	// MonthEnsurer creates the month and its goal row when missing.
	MonthEnsurer interface {
		EnsureMonth(ctx context.Context, month MonthKey) (int64, error)
		EnsureGoalRow(ctx context.Context, month MonthKey) error
	}

	// ApplyUnitRunner runs fn inside one database transaction, committing when fn
	// returns nil and rolling back otherwise.
	ApplyUnitRunner interface {
		WithinApplyUnit(ctx context.Context, fn func(tx ApplyTx) error) error
	}

	// TransactionNotifier is told about transactions after they are committed.
	TransactionNotifier interface {
		TransactionCreated(ctx context.Context, id int64, month MonthKey, source string) error
	}
)
