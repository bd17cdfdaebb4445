// Package recurring materializes recurring templates into transactions for a month.
//
// Each template is applied at most once per month. The application record and the
// transaction it produces are written in one storage transaction, so a failure
// leaves neither behind and the template stays eligible for the next call.
package recurring

import (
	"context"
	"fmt"
	"strings"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

// Store is the storage the engine needs.
type Store interface {
	core.TemplateLister
	core.MonthEnsurer
	core.ApplyUnitRunner
}

// Status is what happened to one template during an apply call.
type Status string

const (
	StatusApplied        Status = "applied"
	StatusAlreadyApplied Status = "already_applied"
	StatusSkipped        Status = "skipped_no_amount"
	StatusFailed         Status = "failed"
)

// EventSource tags transaction events published for engine-created rows.
const EventSource = "recurring"

// Outcome describes the handling of one enabled template.
type Outcome struct {
	TemplateID    int64
	Status        Status
	TransactionID int64  // set when Status is StatusApplied
	Amount        int64  // resolved amount, zero when skipped
	Date          string // clamped date, empty when skipped
	Err           error
}

// Result is the report of one Apply call.
type Result struct {
	MonthKey core.MonthKey
	Applied  int // templates newly materialized by this call
	Outcomes []Outcome
}

// Count returns how many outcomes have status s.
func (r Result) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Engine is the recurring application engine. It holds no state between calls and is
// safe for concurrent use; concurrent calls for the same month are serialized by
// the application record's uniqueness.
type Engine struct {
	store       Store
	notifier    core.TransactionNotifier
	logger      *log.Logger
	defaultNote string
}

type Option func(*Engine)

// WithNotifier sets who is told about committed transactions.
func WithNotifier(n core.TransactionNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent(log.ComponentRecurring) }
}

// WithDefaultNote replaces the note used for templates without one.
func WithDefaultNote(note string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(note) != "" {
			e.defaultNote = note
		}
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		logger:      log.Discard(),
		defaultNote: core.DefaultRecurringNote,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply materializes every eligible enabled template for monthKey.
//
// A template is eligible when it resolves to a positive amount: an override when
// one is given, otherwise the base amount of a fixed template. Variable templates
// without an override are skipped and stay eligible for a later call. A template
// already applied for the month is left alone whatever the overrides say.
//
// An invalid monthKey is reported before anything is written. Failures of single
// templates do not stop the others; they are returned together as *ApplyError
// alongside a Result that reflects what was committed.
func (e *Engine) Apply(ctx context.Context, monthKey string, overrides core.Overrides) (Result, error) {
	month, err := core.ParseMonthKey(monthKey)
	if err != nil {
		return Result{}, err
	}
	res := Result{MonthKey: month}
	logger := e.logger.With(log.FieldMonthKey, string(month))

	if _, err := e.store.EnsureMonth(ctx, month); err != nil {
		return res, fmt.Errorf("ensure month %s: %w", month, err)
	}
	if err := e.store.EnsureGoalRow(ctx, month); err != nil {
		return res, fmt.Errorf("ensure goal row %s: %w", month, err)
	}

	templates, err := e.store.ListEnabledTemplates(ctx)
	if err != nil {
		return res, fmt.Errorf("list enabled templates: %w", err)
	}

	var failures []TemplateError
	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			failures = append(failures, TemplateError{TemplateID: t.ID, Err: err})
			break
		}

		o := e.applyTemplate(ctx, month, t, overrides)
		res.Outcomes = append(res.Outcomes, o)

		logger.DebugContext(ctx, "Template processed",
			log.FieldTemplateID, t.ID,
			log.FieldOutcome, string(o.Status),
			log.FieldAmount, o.Amount,
			log.FieldDate, o.Date)

		switch o.Status {
		case StatusApplied:
			res.Applied++
			e.notify(ctx, logger, o.TransactionID, month)
		case StatusFailed:
			failures = append(failures, TemplateError{TemplateID: t.ID, Err: o.Err})
			logger.ErrorContext(ctx, "Failed to apply recurring template",
				log.FieldTemplateID, t.ID,
				log.FieldError, o.Err)
		}
	}

	logger.InfoContext(ctx, "Recurring templates applied",
		"templates", len(templates),
		"applied", res.Applied,
		"already_applied", res.Count(StatusAlreadyApplied),
		"skipped", res.Count(StatusSkipped),
		"failed", len(failures))

	if len(failures) > 0 {
		return res, &ApplyError{MonthKey: month, Failures: failures}
	}
	return res, nil
}

// applyTemplate runs the apply unit for one template: mark applied, and only when
// that mark is new, insert the transaction.
func (e *Engine) applyTemplate(ctx context.Context, month core.MonthKey, t core.RecurringTemplate, overrides core.Overrides) Outcome {
	o := Outcome{TemplateID: t.ID}

	amount, ok := ResolveAmount(t, overrides)
	if !ok {
		o.Status = StatusSkipped
		return o
	}
	date := month.DateOn(t.DayOfMonth)

	var created bool
	var txID int64
	err := e.store.WithinApplyUnit(ctx, func(tx core.ApplyTx) error {
		var err error
		created, err = tx.TryMarkApplied(ctx, month, t.ID)
		if err != nil || !created {
			return err
		}
		templateID := t.ID
		txID, err = tx.InsertTransaction(ctx, core.NewTransaction{
			MonthKey:   month,
			CategoryID: t.CategoryID,
			Amount:     amount,
			Date:       date,
			Note:       t.EffectiveNote(e.defaultNote),
			TemplateID: &templateID,
		})
		return err
	})

	switch {
	case err != nil:
		o.Status = StatusFailed
		o.Err = err
	case !created:
		o.Status = StatusAlreadyApplied
	default:
		o.Status = StatusApplied
		o.TransactionID = txID
		o.Amount = amount
		o.Date = date
	}
	return o
}

// ResolveAmount returns the amount t is applied with: a positive override if one
// is present, else the base amount of a fixed template. ok is false when the
// template must be skipped.
func ResolveAmount(t core.RecurringTemplate, overrides core.Overrides) (amount int64, ok bool) {
	if v, found := overrides.Lookup(t.ID); found {
		return v, true
	}
	if t.Variable || t.Amount <= 0 {
		return 0, false
	}
	return t.Amount, true
}

// notify reports a committed transaction. The transaction already exists, so a
// failed notification is only logged.
func (e *Engine) notify(ctx context.Context, logger *log.Logger, txID int64, month core.MonthKey) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.TransactionCreated(ctx, txID, month, EventSource); err != nil {
		logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTxID, txID,
			log.FieldError, err)
	}
}
