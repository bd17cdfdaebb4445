package core

// CategoryAmount is an amount aggregated for one category of a month.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Type       CategoryType
	Color      string
	Amount     int64
}

// MonthSummary is the dashboard view of a single month.
type MonthSummary struct {
	MonthKey      MonthKey
	TotalIncome   int64
	TotalExpenses int64
	Balance       int64
	SavingsGoal   int64
	HighestSpend  *CategoryAmount
	Breakdown     []CategoryAmount
}

// MonthTrend is one point of the month-over-month trend chart.
type MonthTrend struct {
	MonthKey    MonthKey
	Income      int64
	Expenses    int64
	SavingsGoal int64
}
