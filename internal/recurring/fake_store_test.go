package recurring

import (
	"context"
	"errors"
	"sort"
	"sync"

	"moneytracker/internal/core"
)

type runKey struct {
	month core.MonthKey
	id    int64
}

// memStore is an in-memory Store. Apply units stage their writes and publish them
// only when the callback succeeds.
type memStore struct {
	mu        sync.Mutex
	templates []core.RecurringTemplate
	months    map[core.MonthKey]bool
	goals     map[core.MonthKey]bool
	runs      map[runKey]bool
	txs       []core.NewTransaction

	// failInsert makes InsertTransaction fail for the given template id.
	failInsert map[int64]error
	listErr    error
}

func newMemStore(templates ...core.RecurringTemplate) *memStore {
	return &memStore{
		templates:  templates,
		months:     make(map[core.MonthKey]bool),
		goals:      make(map[core.MonthKey]bool),
		runs:       make(map[runKey]bool),
		failInsert: make(map[int64]error),
	}
}

func (s *memStore) ListEnabledTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []core.RecurringTemplate
	for _, t := range s.templates {
		if t.Enabled {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) EnsureMonth(ctx context.Context, month core.MonthKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[month] = true
	return 1, nil
}

func (s *memStore) EnsureGoalRow(ctx context.Context, month core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[month] = true
	return nil
}

func (s *memStore) WithinApplyUnit(ctx context.Context, fn func(tx core.ApplyTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, runs: make(map[runKey]bool)}
	if err := fn(tx); err != nil {
		return err
	}
	for k := range tx.runs {
		s.runs[k] = true
	}
	s.txs = append(s.txs, tx.txs...)
	return nil
}

func (s *memStore) transactions() []core.NewTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.NewTransaction(nil), s.txs...)
}

func (s *memStore) applied(month core.MonthKey, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[runKey{month, id}]
}

type memTx struct {
	store *memStore
	runs  map[runKey]bool
	txs   []core.NewTransaction
}

func (t *memTx) TryMarkApplied(ctx context.Context, month core.MonthKey, id int64) (bool, error) {
	k := runKey{month, id}
	if t.store.runs[k] || t.runs[k] {
		return false, nil
	}
	t.runs[k] = true
	return true, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, nt core.NewTransaction) (int64, error) {
	if nt.TemplateID != nil {
		if err := t.store.failInsert[*nt.TemplateID]; err != nil {
			return 0, err
		}
	}
	t.txs = append(t.txs, nt)
	return int64(len(t.store.txs) + len(t.txs)), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []int64
	err    error
}

func (n *recordingNotifier) TransactionCreated(ctx context.Context, id int64, month core.MonthKey, source string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if source != EventSource {
		return errors.New("unexpected source " + source)
	}
	n.events = append(n.events, id)
	return n.err
}
