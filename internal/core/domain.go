package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

// DefaultRecurringNote is written on materialized transactions whose template has no note.
const DefaultRecurringNote = "Recurring"

// DefaultCategoryColor matches the palette the original UI seeds categories with.
const DefaultCategoryColor = "#08F850"

type (
	CategoryType string

	// MonthKey identifies a ledger month as YYYY-MM.
	MonthKey string

	Category struct {
		ID    int64
		Name  string
		Type  CategoryType
		Color string
	}

	Transaction struct {
		ID         int64
		MonthKey   MonthKey
		CategoryID int64
		Amount     int64 // minor currency units
		Date       string
		Note       string
		TemplateID *int64 // set only for rows created by the recurring engine

		// Denormalized from the category on reads.
		CategoryName  string
		CategoryType  CategoryType
		CategoryColor string
	}

	RecurringTemplate struct {
		ID         int64
		CategoryID int64
		Amount     int64
		DayOfMonth int
		Note       string
		Enabled    bool
		Variable   bool

		CategoryName  string
		CategoryType  CategoryType
		CategoryColor string
	}

	// TemplatePatch carries the fields of a partial template update; nil means unchanged.
	TemplatePatch struct {
		CategoryID *int64
		Amount     *int64
		DayOfMonth *int
		Note       *string
		Enabled    *bool
		Variable   *bool
	}

	// ApplicationRecord marks a template as already materialized for a month.
	ApplicationRecord struct {
		MonthKey   MonthKey
		TemplateID int64
		AppliedAt  time.Time
	}

	Budget struct {
		MonthKey   MonthKey
		CategoryID int64
		Amount     int64

		CategoryName string
		CategoryType CategoryType
	}

	Goal struct {
		MonthKey MonthKey
		Amount   int64
	}

	// MonthSnapshot is everything a month owns, as moved by export and import.
	// Categories are referenced by name and type so a snapshot survives moving
	// between databases.
	MonthSnapshot struct {
		MonthKey     MonthKey
		Categories   []Category
		Transactions []Transaction
		Budgets      []Budget
		Goal         int64
	}

	ImportResult struct {
		MonthKey          MonthKey
		Transactions      int
		Budgets           int
		CategoriesCreated int
	}
)

var monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseMonthKey validates s as YYYY-MM with a month between 01 and 12.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if !monthKeyPattern.MatchString(s) {
		return "", fmt.Errorf("%w: invalid month_key %q, use YYYY-MM", ErrValidation, s)
	}
	m, _ := strconv.Atoi(s[5:7])
	if m < 1 || m > 12 {
		return "", fmt.Errorf("%w: invalid month_key %q, month must be 01-12", ErrValidation, s)
	}
	return MonthKey(s), nil
}

func (k MonthKey) String() string {
	return string(k)
}

// Year returns the year component. The key must have been validated.
func (k MonthKey) Year() int {
	y, _ := strconv.Atoi(string(k)[:4])
	return y
}

// Month returns the month component (1-12). The key must have been validated.
func (k MonthKey) Month() time.Month {
	m, _ := strconv.Atoi(string(k)[5:7])
	return time.Month(m)
}

// DaysInMonth returns the length of the month, accounting for leap years.
func (k MonthKey) DaysInMonth() int {
	return time.Date(k.Year(), k.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Previous returns the month before k.
func (k MonthKey) Previous() MonthKey {
	t := time.Date(k.Year(), k.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	return MonthKey(t.Format("2006-01"))
}

// DateOn returns the YYYY-MM-DD date for day within k, clamped to [1, DaysInMonth].
func (k MonthKey) DateOn(day int) string {
	return fmt.Sprintf("%s-%02d", k, ClampDay(day, k.DaysInMonth()))
}

// ClampDay limits day to [1, daysInMonth] so short months resolve to their last day.
func ClampDay(day, daysInMonth int) int {
	if day < 1 {
		return 1
	}
	if day > daysInMonth {
		return daysInMonth
	}
	return day
}

func (t CategoryType) Valid() bool {
	return t == Income || t == Expense
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: category type must be income or expense", ErrValidation)
	}
	return nil
}

// Validate checks a transaction before it is written. MonthKey must already be parsed.
func (t Transaction) Validate() error {
	if t.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id is required", ErrValidation)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidAmount)
	}
	if !datePattern.MatchString(t.Date) {
		return fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD", ErrValidation, t.Date)
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return fmt.Errorf("%w: invalid date %q", ErrValidation, t.Date)
	}
	return nil
}

// Validate enforces the catalogue invariants: fixed templates need a positive base
// amount, variable templates may carry zero, and the day must be 1-31.
func (rt RecurringTemplate) Validate() error {
	if rt.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id is required", ErrValidation)
	}
	if rt.DayOfMonth < 1 || rt.DayOfMonth > 31 {
		return fmt.Errorf("%w: day_of_month must be between 1 and 31", ErrValidation)
	}
	if rt.Amount < 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidAmount)
	}
	if !rt.Variable && rt.Amount <= 0 {
		return fmt.Errorf("%w: fixed templates need an amount greater than zero", ErrValidation)
	}
	return nil
}

// Apply returns a copy of rt with the non-nil patch fields set.
func (p TemplatePatch) Apply(rt RecurringTemplate) RecurringTemplate {
	if p.CategoryID != nil {
		rt.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		rt.Amount = *p.Amount
	}
	if p.DayOfMonth != nil {
		rt.DayOfMonth = *p.DayOfMonth
	}
	if p.Note != nil {
		rt.Note = *p.Note
	}
	if p.Enabled != nil {
		rt.Enabled = *p.Enabled
	}
	if p.Variable != nil {
		rt.Variable = *p.Variable
	}
	return rt
}

// Empty reports whether the patch changes nothing.
func (p TemplatePatch) Empty() bool {
	return p.CategoryID == nil && p.Amount == nil && p.DayOfMonth == nil &&
		p.Note == nil && p.Enabled == nil && p.Variable == nil
}

// EffectiveNote is the note stamped on materialized transactions: the template's
// own note, else fallback, else DefaultRecurringNote.
func (rt RecurringTemplate) EffectiveNote(fallback string) string {
	if strings.TrimSpace(rt.Note) != "" {
		return rt.Note
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return DefaultRecurringNote
}

func (b Budget) Validate() error {
	if b.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id is required", ErrValidation)
	}
	if b.Amount < 0 {
		return fmt.Errorf("%w: budget amount cannot be negative", ErrValidation)
	}
	return nil
}
