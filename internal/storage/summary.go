package storage

import (
	"context"

	"moneytracker/internal/core"
)

// MonthSummary aggregates a month's transactions per category. Categories without
// transactions in the month are left out of the breakdown.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, month core.MonthKey) (core.MonthSummary, error) {
	s := core.MonthSummary{MonthKey: month}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.type, c.color, SUM(t.amount)
		FROM transactions t
		JOIN months m ON m.id = t.month_id
		JOIN categories c ON c.id = t.category_id
		WHERE m.month_key = ?
		GROUP BY c.id, c.name, c.type, c.color
		ORDER BY SUM(t.amount) DESC, c.name`, string(month))
	if err != nil {
		return s, storageErr("month summary", err)
	}
	for rows.Next() {
		var ca core.CategoryAmount
		var typ string
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &typ, &ca.Color, &ca.Amount); err != nil {
			rows.Close()
			return s, storageErr("month summary", err)
		}
		ca.Type = core.CategoryType(typ)
		s.Breakdown = append(s.Breakdown, ca)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return s, storageErr("month summary", err)
	}

	for i, ca := range s.Breakdown {
		switch ca.Type {
		case core.Income:
			s.TotalIncome += ca.Amount
		case core.Expense:
			s.TotalExpenses += ca.Amount
			if s.HighestSpend == nil {
				s.HighestSpend = &s.Breakdown[i]
			}
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses

	goal, err := getGoal(ctx, r.db, month)
	if err != nil {
		return s, err
	}
	s.SavingsGoal = goal.Amount
	return s, nil
}
