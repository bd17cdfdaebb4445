package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"moneytracker/internal/core"
	"moneytracker/internal/export"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		month  string
		format string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a month as JSON or CSV",
		Long: `Export a month's categories, transactions, budgets and goal as a JSON document,
or its transactions as CSV. Output goes to stdout unless --file is given.`,
		Example: `  ledgerctl export --month 2024-05 > 2024-05.json
  ledgerctl export --month 2024-05 --format csv --file 2024-05.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "json" && format != "csv" {
				return fmt.Errorf("%w: format must be json or csv", core.ErrValidation)
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := export.NewService(s.repo, s.logger).Export(cmd.Context(), month)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if file != "" {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("create %s: %w", file, err)
				}
				defer f.Close()
				w = f
			}

			if format == "csv" {
				err = export.WriteCSV(w, doc)
			} else {
				err = export.WriteJSON(w, doc)
			}
			if err != nil {
				return err
			}
			if file != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s (%d transactions) to %s\n", doc.MonthKey, len(doc.Transactions), file)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month to export, YYYY-MM")
	cmd.Flags().StringVar(&format, "format", "json", "export format (json|csv)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		month     string
		format    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a month from a JSON export or a CSV of transactions",
		Long: `Import a month previously written by export. JSON documents carry their own
month; CSV files need --month. Categories are matched by name and type and created
when missing. A month that already has transactions is only replaced with
--overwrite.`,
		Example: `  ledgerctl import 2024-05.json
  ledgerctl import --month 2024-05 --overwrite 2024-05.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = detectFormat(format, args[0])
			if format == "csv" && month == "" {
				return fmt.Errorf("%w: --month is required for csv imports", core.ErrValidation)
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}

			var (
				doc export.MonthExport
				err error
			)
			if format == "csv" {
				doc, err = export.ReadCSV(r, month)
			} else {
				doc, err = export.ReadJSON(r)
			}
			if err != nil {
				return err
			}
			if month != "" && format == "json" && doc.MonthKey != month {
				return fmt.Errorf("%w: file holds month %s, not %s", core.ErrValidation, doc.MonthKey, month)
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := export.NewService(s.repo, s.logger).Import(cmd.Context(), doc, overwrite)
			if err != nil {
				return err
			}
			if s.out.json() {
				return s.out.JSON(map[string]any{
					"ok":                 true,
					"month_key":          string(res.MonthKey),
					"transactions":       res.Transactions,
					"budgets":            res.Budgets,
					"categories_created": res.CategoriesCreated,
				})
			}
			s.out.Linef("Imported %s: %d transaction(s), %d budget(s), %d new categor(ies)",
				res.MonthKey, res.Transactions, res.Budgets, res.CategoriesCreated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "target month, YYYY-MM (required for csv)")
	cmd.Flags().StringVar(&format, "format", "auto", "input format (auto|json|csv)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace a month that already has transactions")

	return cmd
}

// detectFormat resolves "auto" from the file extension, defaulting to json.
func detectFormat(format, path string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != "auto" {
		return format
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "csv"
	}
	return "json"
}
