// Package export moves a month of ledger data in and out of the database as JSON
// or CSV.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

// FormatVersion is written into every JSON export.
const FormatVersion = 1

type (
	// MonthExport is the JSON document of one month. Categories are referenced by
	// name and type, never by id, so a document can be imported into another
	// database.
	MonthExport struct {
		Version      int                 `json:"version"`
		MonthKey     string              `json:"month_key"`
		Categories   []CategoryRecord    `json:"categories"`
		Transactions []TransactionRecord `json:"transactions"`
		Budgets      []BudgetRecord      `json:"budgets"`
		Goal         int64               `json:"goal"`
	}

	CategoryRecord struct {
		Name  string `json:"name"`
		Type  string `json:"type"`
		Color string `json:"color,omitempty"`
	}

	TransactionRecord struct {
		Date       string `json:"date" csv:"date"`
		Category   string `json:"category" csv:"category"`
		Type       string `json:"type" csv:"type"`
		Amount     int64  `json:"amount" csv:"amount"`
		Note       string `json:"note" csv:"note"`
		TemplateID string `json:"template_id,omitempty" csv:"template_id"`
	}

	BudgetRecord struct {
		Category string `json:"category"`
		Type     string `json:"type"`
		Amount   int64  `json:"amount"`
	}
)

// Store is the storage the service needs.
type Store interface {
	ExportMonth(ctx context.Context, month core.MonthKey) (core.MonthSnapshot, error)
	ImportMonth(ctx context.Context, snap core.MonthSnapshot, overwrite bool) (core.ImportResult, error)
}

type Service struct {
	store  Store
	logger *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{store: store, logger: logger.WithComponent(log.ComponentExport)}
}

// Export reads a month into its export document.
func (s *Service) Export(ctx context.Context, monthKey string) (MonthExport, error) {
	month, err := core.ParseMonthKey(monthKey)
	if err != nil {
		return MonthExport{}, err
	}
	snap, err := s.store.ExportMonth(ctx, month)
	if err != nil {
		return MonthExport{}, err
	}
	doc := FromSnapshot(snap)
	s.logger.InfoContext(ctx, "Month exported",
		log.FieldMonthKey, monthKey,
		log.FieldOperation, log.OpExport,
		"transactions", len(doc.Transactions))
	return doc, nil
}

// Import writes doc into its month. See storage for the overwrite rules.
func (s *Service) Import(ctx context.Context, doc MonthExport, overwrite bool) (core.ImportResult, error) {
	snap, err := doc.Snapshot()
	if err != nil {
		return core.ImportResult{}, err
	}
	res, err := s.store.ImportMonth(ctx, snap, overwrite)
	if err != nil {
		return res, err
	}
	s.logger.InfoContext(ctx, "Month imported",
		log.FieldMonthKey, doc.MonthKey,
		log.FieldOperation, log.OpImport,
		"transactions", res.Transactions,
		"budgets", res.Budgets,
		"categories_created", res.CategoriesCreated,
		"overwrite", overwrite)
	return res, nil
}

func FromSnapshot(snap core.MonthSnapshot) MonthExport {
	doc := MonthExport{
		Version:      FormatVersion,
		MonthKey:     string(snap.MonthKey),
		Categories:   make([]CategoryRecord, 0, len(snap.Categories)),
		Transactions: make([]TransactionRecord, 0, len(snap.Transactions)),
		Budgets:      make([]BudgetRecord, 0, len(snap.Budgets)),
		Goal:         snap.Goal,
	}
	for _, c := range snap.Categories {
		doc.Categories = append(doc.Categories, CategoryRecord{Name: c.Name, Type: string(c.Type), Color: c.Color})
	}
	for _, t := range snap.Transactions {
		rec := TransactionRecord{
			Date:     t.Date,
			Category: t.CategoryName,
			Type:     string(t.CategoryType),
			Amount:   t.Amount,
			Note:     t.Note,
		}
		if t.TemplateID != nil {
			rec.TemplateID = strconv.FormatInt(*t.TemplateID, 10)
		}
		doc.Transactions = append(doc.Transactions, rec)
	}
	for _, b := range snap.Budgets {
		doc.Budgets = append(doc.Budgets, BudgetRecord{Category: b.CategoryName, Type: string(b.CategoryType), Amount: b.Amount})
	}
	return doc
}

// Snapshot validates the document and converts it for storage.
func (d MonthExport) Snapshot() (core.MonthSnapshot, error) {
	month, err := core.ParseMonthKey(d.MonthKey)
	if err != nil {
		return core.MonthSnapshot{}, err
	}
	if d.Goal < 0 {
		return core.MonthSnapshot{}, fmt.Errorf("%w: goal cannot be negative", core.ErrValidation)
	}
	snap := core.MonthSnapshot{MonthKey: month, Goal: d.Goal}

	for _, c := range d.Categories {
		cat := core.Category{Name: strings.TrimSpace(c.Name), Type: core.CategoryType(c.Type), Color: c.Color}
		if err := cat.Validate(); err != nil {
			return core.MonthSnapshot{}, err
		}
		snap.Categories = append(snap.Categories, cat)
	}
	for i, r := range d.Transactions {
		t, err := r.transaction(month)
		if err != nil {
			return core.MonthSnapshot{}, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	for _, b := range d.Budgets {
		typ := core.CategoryType(b.Type)
		if strings.TrimSpace(b.Category) == "" || !typ.Valid() {
			return core.MonthSnapshot{}, fmt.Errorf("%w: budget needs a category name and type", core.ErrValidation)
		}
		if b.Amount < 0 {
			return core.MonthSnapshot{}, fmt.Errorf("%w: budget amount cannot be negative", core.ErrValidation)
		}
		snap.Budgets = append(snap.Budgets, core.Budget{MonthKey: month, CategoryName: b.Category, CategoryType: typ, Amount: b.Amount})
	}
	return snap, nil
}

func (r TransactionRecord) transaction(month core.MonthKey) (core.Transaction, error) {
	typ := core.CategoryType(strings.ToLower(strings.TrimSpace(r.Type)))
	if strings.TrimSpace(r.Category) == "" || !typ.Valid() {
		return core.Transaction{}, fmt.Errorf("%w: category name and type are required", core.ErrValidation)
	}
	t := core.Transaction{
		MonthKey:     month,
		Amount:       r.Amount,
		Date:         strings.TrimSpace(r.Date),
		Note:         r.Note,
		CategoryName: strings.TrimSpace(r.Category),
		CategoryType: typ,
	}
	if s := strings.TrimSpace(r.TemplateID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return core.Transaction{}, fmt.Errorf("%w: invalid template_id %q", core.ErrValidation, r.TemplateID)
		}
		t.TemplateID = &id
	}
	return t, nil
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc MonthExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSON decodes an export document, rejecting unknown fields.
func ReadJSON(r io.Reader) (MonthExport, error) {
	var doc MonthExport
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return MonthExport{}, fmt.Errorf("%w: decode export: %v", core.ErrValidation, err)
	}
	if doc.Version != 0 && doc.Version != FormatVersion {
		return MonthExport{}, fmt.Errorf("%w: unsupported export version %d", core.ErrValidation, doc.Version)
	}
	return doc, nil
}

// WriteCSV writes the transactions of doc, one row each, with a header.
func WriteCSV(w io.Writer, doc MonthExport) error {
	rows := doc.Transactions
	if rows == nil {
		rows = []TransactionRecord{}
	}
	cw := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads transactions written by WriteCSV into a document for month. Only
// transactions travel in CSV; budgets and goal are left empty.
func ReadCSV(r io.Reader, monthKey string) (MonthExport, error) {
	if _, err := core.ParseMonthKey(monthKey); err != nil {
		return MonthExport{}, err
	}
	var rows []TransactionRecord
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return MonthExport{}, fmt.Errorf("%w: read csv: %v", core.ErrValidation, err)
	}
	return MonthExport{Version: FormatVersion, MonthKey: monthKey, Transactions: rows}, nil
}
