// Package memory is an in-process sheets.RowWriter, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneytracker/internal/core"
	"moneytracker/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.TransactionRow
}

var _ sheets.RowWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (s *Store) AppendRow(_ context.Context, row sheets.TransactionRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) HasTransaction(_ context.Context, month core.MonthKey, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.MonthKey == month && r.TransactionID == id {
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.TransactionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.TransactionRow(nil), s.rows...)
}
