package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"moneytracker/internal/core"
	"moneytracker/internal/export"
)

// handleExportMonth serves ?month=&format=json|csv. CSV is sent as a download.
func (s *Server) handleExportMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthQuery(r, "month")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		WriteError(w, r, fmt.Errorf("%w: format must be json or csv", core.ErrValidation))
		return
	}

	doc, err := s.porter.Export(r.Context(), string(month))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if format == "json" {
		OK(w, doc)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, doc); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="money-tracker-%s.csv"`, month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImportMonth accepts {payload, overwrite} as JSON, or a CSV body written
// by the CSV export with ?month= and optional ?overwrite=.
func (s *Server) handleImportMonth(w http.ResponseWriter, r *http.Request) {
	var (
		doc       export.MonthExport
		overwrite bool
		err       error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		doc, overwrite, err = readCSVImport(r)
	} else {
		doc, overwrite, err = readJSONImport(r)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := s.porter.Import(r.Context(), doc, overwrite)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	OK(w, map[string]any{
		"ok":                 true,
		"month_key":          res.MonthKey,
		"transactions":       res.Transactions,
		"budgets":            res.Budgets,
		"categories_created": res.CategoriesCreated,
	})
}

func readJSONImport(r *http.Request) (export.MonthExport, bool, error) {
	p := NewRequestBodyParser(r, importBodyLimit)
	if err := p.Parse(); err != nil {
		return export.MonthExport{}, false, err
	}
	var payload json.RawMessage
	if err := p.Decode("payload", &payload); err != nil {
		return export.MonthExport{}, false, err
	}
	if len(payload) == 0 {
		return export.MonthExport{}, false, fmt.Errorf("%w: payload is required", core.ErrValidation)
	}
	overwrite, err := p.GetBool("overwrite")
	if err != nil {
		return export.MonthExport{}, false, err
	}
	doc, err := export.ReadJSON(bytes.NewReader(payload))
	return doc, overwrite, err
}

func readCSVImport(r *http.Request) (export.MonthExport, bool, error) {
	q := r.URL.Query()
	overwrite := false
	if v := q.Get("overwrite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return export.MonthExport{}, false, fmt.Errorf("%w: overwrite must be a boolean", core.ErrValidation)
		}
		overwrite = b
	}
	doc, err := export.ReadCSV(io.LimitReader(r.Body, importBodyLimit), q.Get("month"))
	return doc, overwrite, err
}
