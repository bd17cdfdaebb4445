package http

import (
	"net/http"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.ledger.ListMonths(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	keys := make([]string, 0, len(months))
	for _, m := range months {
		keys = append(keys, string(m))
	}
	OK(w, map[string]any{"months": keys})
}

func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	month, err := core.ParseMonthKey(p.Get("month_key"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := s.ledger.EnsureMonth(r.Context(), month)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.EnsureGoalRow(r.Context(), month); err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, map[string]any{"ok": true, "month_id": id, "month_key": month})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryView(c))
	}
	OK(w, map[string]any{"categories": out})
}

func parseCategory(p *RequestBodyParser) core.Category {
	c := core.Category{
		Name:  p.Get("name"),
		Type:  core.CategoryType(p.Get("type")),
		Color: p.Get("color"),
	}
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	return c
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	id, err := s.ledger.CreateCategory(r.Context(), parseCategory(p))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		log.FieldCategoryID, id,
		log.FieldOperation, log.OpCreate)
	Created(w, id)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	c := parseCategory(p)
	c.ID = id
	if err := s.ledger.UpdateCategory(r.Context(), c); err != nil {
		WriteError(w, r, err)
		return
	}
	Ack(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted",
		log.FieldCategoryID, id,
		log.FieldOperation, log.OpDelete)
	Ack(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r, "month")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if _, err := s.ledger.EnsureMonth(r.Context(), month); err != nil {
		WriteError(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), month)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	OK(w, map[string]any{"transactions": out})
}

// parseTransactionFields reads the fields shared by create and update.
func parseTransactionFields(p *RequestBodyParser) (core.Transaction, error) {
	var t core.Transaction
	var err error
	if t.CategoryID, err = p.GetID("category_id"); err != nil {
		return t, err
	}
	if t.Amount, err = p.GetAmount("amount"); err != nil {
		return t, err
	}
	_, t.Date = p.First("date", "tdate")
	t.Note = p.Get("note")
	return t, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	t, err := parseTransactionFields(p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	t.MonthKey = core.MonthKey(p.Get("month_key"))
	if t.MonthKey == "" && len(t.Date) >= 7 {
		t.MonthKey = core.MonthKey(t.Date[:7])
	}

	id, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldTxID, id,
		log.FieldMonthKey, t.MonthKey,
		log.FieldAmount, t.Amount,
		log.FieldOperation, log.OpCreate)
	s.notifyCreated(r, id, t.MonthKey)
	Created(w, id)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	t, err := parseTransactionFields(p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	t.ID = id
	if err := s.ledger.UpdateTransaction(r.Context(), t); err != nil {
		WriteError(w, r, err)
		return
	}
	Ack(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldTxID, id,
		log.FieldOperation, log.OpDelete)
	Ack(w)
}
