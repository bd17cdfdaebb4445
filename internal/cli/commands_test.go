package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/config"
	"moneytracker/internal/core"
)

// Seeded categories: 1 Salary (income) ... 6 Misc (expense).
const (
	salaryID = "1"
	miscID   = "6"
)

func addTemplate(t *testing.T, db string, args ...string) int64 {
	t.Helper()
	var got struct {
		OK bool  `json:"ok"`
		ID int64 `json:"id"`
	}
	runJSON(t, db, &got, append([]string{"templates", "add"}, args...)...)
	require.True(t, got.OK)
	require.Positive(t, got.ID)
	return got.ID
}

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"3=120", "7=45.50", "9=0", "11=-5"})
	require.NoError(t, err)
	assert.Equal(t, core.Overrides{3: 120, 7: 45}, got)

	_, err = parseOverrides([]string{"3:120"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTemplates_Lifecycle(t *testing.T) {
	db := cliEnv(t)

	id := addTemplate(t, db, "--category", salaryID, "--amount", "3000", "--day", "27", "--note", "Pay")

	var list []templateReport
	runJSON(t, db, &list, "templates", "list")
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Salary", list[0].Category)
	assert.Equal(t, int64(3000), list[0].Amount)
	assert.True(t, list[0].Enabled)

	var toggled templateReport
	runJSON(t, db, &toggled, "templates", "disable", fmt.Sprint(id))
	assert.False(t, toggled.Enabled)
	runJSON(t, db, &toggled, "templates", "enable", fmt.Sprint(id))
	assert.True(t, toggled.Enabled)

	out, err := runCLI(t, db, "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "Pay")

	_, err = runCLI(t, db, "templates", "delete", fmt.Sprint(id))
	require.NoError(t, err)
	runJSON(t, db, &list, "templates", "list")
	assert.Empty(t, list)

	_, err = runCLI(t, db, "templates", "delete", fmt.Sprint(id))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTemplates_AddValidation(t *testing.T) {
	db := cliEnv(t)

	tests := []struct {
		name string
		args []string
		kind error
	}{
		{"fixed without amount", []string{"--category", miscID, "--day", "5"}, core.ErrValidation},
		{"day out of range", []string{"--category", miscID, "--amount", "10", "--day", "32"}, core.ErrValidation},
		{"unknown category", []string{"--category", "999", "--amount", "10"}, core.ErrNotFound},
		{"bad amount", []string{"--category", miscID, "--amount", "ten"}, core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, db, append([]string{"templates", "add"}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	_, err := runCLI(t, db, "templates", "enable", "abc")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestReadTemplateFile(t *testing.T) {
	entries, err := readTemplateFile([]byte(`
templates:
  - category: Rent
    type: expense
    amount: "850"
    day: 1
    note: Rent
  - category_id: 4
    day: 15
    variable: true
    enabled: false
`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Rent", entries[0].Category)
	assert.Equal(t, "850", entries[0].Amount)
	assert.Nil(t, entries[0].Enabled)
	assert.Equal(t, int64(4), entries[1].CategoryID)
	require.NotNil(t, entries[1].Enabled)
	assert.False(t, *entries[1].Enabled)

	_, err = readTemplateFile([]byte("templates: []\n"))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = readTemplateFile([]byte("templates: [\n"))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTemplates_ImportYAML(t *testing.T) {
	db := cliEnv(t)
	file := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
templates:
  - category: Rent
    type: expense
    amount: "850"
    day: 1
    note: Rent
  - category: transport
    type: expense
    day: 15
    variable: true
    note: Fuel
`), 0o644))

	_, err := runCLI(t, db, "templates", "import", file)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Contains(t, err.Error(), "--create-categories")

	var got struct {
		OK  bool    `json:"ok"`
		IDs []int64 `json:"ids"`
	}
	runJSON(t, db, &got, "templates", "import", "--create-categories", file)
	assert.True(t, got.OK)
	assert.Len(t, got.IDs, 2)

	var list []templateReport
	runJSON(t, db, &list, "templates", "list")
	require.Len(t, list, 2)
	byNote := map[string]templateReport{}
	for _, tr := range list {
		byNote[tr.Note] = tr
	}
	assert.Equal(t, "Rent", byNote["Rent"].Category)
	assert.Equal(t, int64(850), byNote["Rent"].Amount)
	assert.Equal(t, "Transport", byNote["Fuel"].Category, "existing category matched case-insensitively")
	assert.True(t, byNote["Fuel"].Variable)
}

func TestApply_OverridesAndIdempotence(t *testing.T) {
	db := cliEnv(t)
	fixed := addTemplate(t, db, "--category", salaryID, "--amount", "3000", "--day", "31")
	variable := addTemplate(t, db, "--category", miscID, "--day", "15", "--variable", "--note", "Electricity")

	var first applyReport
	runJSON(t, db, &first, "apply", "--month", "2024-02")
	assert.Equal(t, "2024-02", first.MonthKey)
	assert.Equal(t, 1, first.AppliedCount)
	require.Len(t, first.Outcomes, 2)
	assert.Equal(t, fixed, first.Outcomes[0].TemplateID)
	assert.Equal(t, "applied", first.Outcomes[0].Status)
	assert.Equal(t, "2024-02-29", first.Outcomes[0].Date)
	assert.Equal(t, "skipped_no_amount", first.Outcomes[1].Status)

	var second applyReport
	runJSON(t, db, &second, "apply", "--month", "2024-02", "--override", fmt.Sprintf("%d=120.75", variable))
	assert.Equal(t, 1, second.AppliedCount)
	assert.Equal(t, "already_applied", second.Outcomes[0].Status)
	assert.Equal(t, "applied", second.Outcomes[1].Status)
	assert.Equal(t, int64(120), second.Outcomes[1].Amount)
	assert.Equal(t, "2024-02-15", second.Outcomes[1].Date)

	out, err := runCLI(t, db, "apply", "--month", "2024-02", "--override", fmt.Sprintf("%d=999", variable))
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 0 template(s) to 2024-02")
	assert.Equal(t, 2, strings.Count(out, "already_applied"))
}

func TestApply_Errors(t *testing.T) {
	db := cliEnv(t)

	_, err := runCLI(t, db, "apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = runCLI(t, db, "apply", "--month", "2024-5")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = runCLI(t, db, "apply", "--month", "2024-05", "--override", "x=1")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := cliEnv(t)
	addTemplate(t, src, "--category", miscID, "--amount", "40", "--day", "3", "--note", "Phone")
	_, err := runCLI(t, src, "apply", "--month", "2024-03")
	require.NoError(t, err)

	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "2024-03.json")
	_, err = runCLI(t, src, "export", "--month", "2024-03", "--file", jsonFile)
	require.NoError(t, err)

	csvOut, err := runCLI(t, src, "export", "--month", "2024-03", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, csvOut, "date,category,type,amount,note,template_id")
	assert.Contains(t, csvOut, "2024-03-03,Misc,expense,40,Phone")

	dst := filepath.Join(t.TempDir(), "other.db")
	var res struct {
		OK           bool   `json:"ok"`
		MonthKey     string `json:"month_key"`
		Transactions int    `json:"transactions"`
	}
	runJSON(t, dst, &res, "import", jsonFile)
	assert.True(t, res.OK)
	assert.Equal(t, "2024-03", res.MonthKey)
	assert.Equal(t, 1, res.Transactions)

	_, err = runCLI(t, dst, "import", jsonFile)
	assert.ErrorIs(t, err, core.ErrConflict)

	runJSON(t, dst, &res, "import", "--overwrite", jsonFile)
	assert.Equal(t, 1, res.Transactions)

	_, err = runCLI(t, dst, "import", "--month", "2024-04", jsonFile)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestImport_CSV(t *testing.T) {
	db := cliEnv(t)
	file := filepath.Join(t.TempDir(), "may.csv")
	require.NoError(t, os.WriteFile(file, []byte(
		"date,category,type,amount,note,template_id\n"+
			"2024-05-02,Groceries,expense,55,Market,\n"+
			"2024-05-25,Salary,income,3000,Pay,\n"), 0o644))

	_, err := runCLI(t, db, "import", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--month is required")

	out, err := runCLI(t, db, "import", "--month", "2024-05", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2024-05: 2 transaction(s)")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "csv", detectFormat("auto", "may.CSV"))
	assert.Equal(t, "json", detectFormat("auto", "may.json"))
	assert.Equal(t, "json", detectFormat("", "-"))
	assert.Equal(t, "csv", detectFormat("csv", "may.txt"))
}

func TestMirrorBackfill(t *testing.T) {
	db := cliEnv(t)
	addTemplate(t, db, "--category", salaryID, "--amount", "3000", "--day", "1")
	addTemplate(t, db, "--category", miscID, "--amount", "20", "--day", "2")
	_, err := runCLI(t, db, "apply", "--month", "2024-07")
	require.NoError(t, err)

	var got struct {
		Added  int  `json:"added"`
		DryRun bool `json:"dry_run"`
	}
	runJSON(t, db, &got, "mirror", "backfill", "--month", "2024-07", "--dry-run")
	assert.Equal(t, 2, got.Added)
	assert.True(t, got.DryRun)

	_, err = runCLI(t, db, "mirror", "backfill", "--month", "2024-07")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SPREADSHEET_ID")
}

func TestMirrorAuth_RequiresOAuthClient(t *testing.T) {
	db := cliEnv(t)
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")

	_, err := runCLI(t, db, "mirror", "auth")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "GOOGLE_OAUTH_CLIENT_JSON")
}

func TestSheetsConfig(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID:   "sheet",
		GoogleSheetName:       "Ledger",
		GoogleOAuthClientFile: "client.json",
		GoogleOAuthTokenFile:  "token.json",
	}
	got := SheetsConfig(cfg)
	assert.Equal(t, "sheet", got.SpreadsheetID)
	assert.Equal(t, "Ledger", got.SheetName)
	assert.Equal(t, "client.json", got.OAuthClientFile)
	assert.Equal(t, "token.json", got.OAuthTokenFile)
}
