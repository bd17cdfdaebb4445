package http

import (
	"moneytracker/internal/core"
	"moneytracker/internal/recurring"
)

// JSON shapes returned by the API. Amounts are integers in minor units.
type (
	categoryView struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Type  string `json:"type"`
		Color string `json:"color"`
	}

	transactionView struct {
		ID            int64  `json:"id"`
		MonthKey      string `json:"month_key"`
		CategoryID    int64  `json:"category_id"`
		Amount        int64  `json:"amount"`
		Date          string `json:"date"`
		Note          string `json:"note"`
		TemplateID    *int64 `json:"template_id"`
		CategoryName  string `json:"category_name"`
		CategoryType  string `json:"category_type"`
		CategoryColor string `json:"category_color"`
	}

	templateView struct {
		ID            int64  `json:"id"`
		CategoryID    int64  `json:"category_id"`
		Amount        int64  `json:"amount"`
		DayOfMonth    int    `json:"day_of_month"`
		Note          string `json:"note"`
		Enabled       bool   `json:"enabled"`
		Variable      bool   `json:"variable"`
		CategoryName  string `json:"category_name"`
		CategoryType  string `json:"category_type"`
		CategoryColor string `json:"category_color"`
	}

	budgetView struct {
		MonthKey     string `json:"month_key"`
		CategoryID   int64  `json:"category_id"`
		BudgetAmount int64  `json:"budget_amount"`
		CategoryName string `json:"category_name"`
		CategoryType string `json:"category_type"`
	}

	categoryAmountView struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Type   string `json:"type,omitempty"`
		Color  string `json:"color"`
		Amount int64  `json:"amount"`
	}

	summaryView struct {
		MonthKey      string               `json:"month_key"`
		TotalIncome   int64                `json:"total_income"`
		TotalExpenses int64                `json:"total_expenses"`
		Balance       int64                `json:"balance"`
		SavingsGoal   int64                `json:"savings_goal"`
		HighestSpend  *categoryAmountView  `json:"highest_spend"`
		Breakdown     []categoryAmountView `json:"breakdown"`
	}

	trendView struct {
		MonthKey    string `json:"month_key"`
		Income      int64  `json:"income"`
		Expenses    int64  `json:"expenses"`
		SavingsGoal int64  `json:"savings_goal"`
	}

	outcomeView struct {
		TemplateID    int64  `json:"template_id"`
		Status        string `json:"status"`
		TransactionID int64  `json:"transaction_id,omitempty"`
		Amount        int64  `json:"amount,omitempty"`
		Date          string `json:"date,omitempty"`
		Error         string `json:"error,omitempty"`
	}

	applyView struct {
		OK           bool          `json:"ok"`
		MonthKey     string        `json:"month_key"`
		AppliedCount int           `json:"applied_count"`
		Outcomes     []outcomeView `json:"outcomes"`
	}
)

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Type: string(c.Type), Color: c.Color}
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:            t.ID,
		MonthKey:      string(t.MonthKey),
		CategoryID:    t.CategoryID,
		Amount:        t.Amount,
		Date:          t.Date,
		Note:          t.Note,
		TemplateID:    t.TemplateID,
		CategoryName:  t.CategoryName,
		CategoryType:  string(t.CategoryType),
		CategoryColor: t.CategoryColor,
	}
}

func newTemplateView(t core.RecurringTemplate) templateView {
	return templateView{
		ID:            t.ID,
		CategoryID:    t.CategoryID,
		Amount:        t.Amount,
		DayOfMonth:    t.DayOfMonth,
		Note:          t.Note,
		Enabled:       t.Enabled,
		Variable:      t.Variable,
		CategoryName:  t.CategoryName,
		CategoryType:  string(t.CategoryType),
		CategoryColor: t.CategoryColor,
	}
}

func newBudgetView(b core.Budget) budgetView {
	return budgetView{
		MonthKey:     string(b.MonthKey),
		CategoryID:   b.CategoryID,
		BudgetAmount: b.Amount,
		CategoryName: b.CategoryName,
		CategoryType: string(b.CategoryType),
	}
}

func newCategoryAmountView(ca core.CategoryAmount) categoryAmountView {
	return categoryAmountView{ID: ca.CategoryID, Name: ca.Name, Type: string(ca.Type), Color: ca.Color, Amount: ca.Amount}
}

func newSummaryView(s core.MonthSummary) summaryView {
	v := summaryView{
		MonthKey:      string(s.MonthKey),
		TotalIncome:   s.TotalIncome,
		TotalExpenses: s.TotalExpenses,
		Balance:       s.Balance,
		SavingsGoal:   s.SavingsGoal,
		Breakdown:     make([]categoryAmountView, 0, len(s.Breakdown)),
	}
	if s.HighestSpend != nil {
		hs := newCategoryAmountView(*s.HighestSpend)
		hs.Type = ""
		v.HighestSpend = &hs
	}
	for _, ca := range s.Breakdown {
		v.Breakdown = append(v.Breakdown, newCategoryAmountView(ca))
	}
	return v
}

func newApplyView(res recurring.Result) applyView {
	v := applyView{
		OK:           true,
		MonthKey:     string(res.MonthKey),
		AppliedCount: res.Applied,
		Outcomes:     make([]outcomeView, 0, len(res.Outcomes)),
	}
	for _, o := range res.Outcomes {
		ov := outcomeView{
			TemplateID:    o.TemplateID,
			Status:        string(o.Status),
			TransactionID: o.TransactionID,
			Amount:        o.Amount,
			Date:          o.Date,
		}
		if o.Err != nil {
			ov.Error = o.Err.Error()
		}
		v.Outcomes = append(v.Outcomes, ov)
	}
	return v
}
