package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r, "month")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), month)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, newBudgetView(b))
	}
	OK(w, map[string]any{"month_key": month, "budgets": out})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
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
	b := core.Budget{MonthKey: month}
	if b.CategoryID, err = p.GetID("category_id"); err != nil {
		WriteError(w, r, err)
		return
	}
	key, _ := p.First("budget_amount", "amount")
	if key == "" {
		WriteError(w, r, fmt.Errorf("%w: budget_amount is required", core.ErrValidation))
		return
	}
	if b.Amount, err = p.GetAmount(key); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := s.ledger.SetBudget(r.Context(), b); err != nil {
		WriteError(w, r, err)
		return
	}
	Ack(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r, "month")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	categoryID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("category_id")), 10, 64)
	if err != nil || categoryID <= 0 {
		WriteError(w, r, fmt.Errorf("%w: category_id query param required", core.ErrValidation))
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), month, categoryID); err != nil {
		WriteError(w, r, err)
		return
	}
	Ack(w)
}

func (s *Server) handleCopyBudgets(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r, defaultBodyLimit)
	if err := p.Parse(); err != nil {
		WriteError(w, r, err)
		return
	}
	to, err := core.ParseMonthKey(p.Get("to_month"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	// from_month defaults to the month before to_month.
	from := to.Previous()
	if raw := strings.TrimSpace(p.Get("from_month")); raw != "" {
		if from, err = core.ParseMonthKey(raw); err != nil {
			WriteError(w, r, err)
			return
		}
	}

	copied, err := s.ledger.CopyBudgets(r.Context(), from, to)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budgets copied",
		"from_month", from,
		"to_month", to,
		"copied", copied)
	OK(w, map[string]any{"ok": true, "copied": copied})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r, "month")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	g, err := s.ledger.GetGoal(r.Context(), month)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, map[string]any{"month_key": g.MonthKey, "savings_goal": g.Amount})
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
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
	key, _ := p.First("savings_goal", "amount")
	if key == "" {
		WriteError(w, r, fmt.Errorf("%w: savings_goal is required", core.ErrValidation))
		return
	}
	amount, err := p.GetAmount(key)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := s.ledger.SetGoal(r.Context(), core.Goal{MonthKey: month, Amount: amount}); err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, map[string]any{"ok": true, "month_key": month, "savings_goal": amount})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r, "month")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if _, err := s.ledger.EnsureMonth(r.Context(), month); err != nil {
		WriteError(w, r, err)
		return
	}
	summary, err := s.ledger.MonthSummary(r.Context(), month)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, newSummaryView(summary))
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	n := 6
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, r, fmt.Errorf("%w: months must be a number", core.ErrValidation))
			return
		}
		n = parsed
	}
	trends, err := s.ledger.MonthTrends(r.Context(), n)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out := make([]trendView, 0, len(trends))
	for _, t := range trends {
		out = append(out, trendView{
			MonthKey:    string(t.MonthKey),
			Income:      t.Income,
			Expenses:    t.Expenses,
			SavingsGoal: t.SavingsGoal,
		})
	}
	OK(w, map[string]any{"months": out})
}
