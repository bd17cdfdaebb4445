package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

type templateReport struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Category   string `json:"category_name"`
	Type       string `json:"category_type"`
	Amount     int64  `json:"amount"`
	DayOfMonth int    `json:"day_of_month"`
	Note       string `json:"note"`
	Enabled    bool   `json:"enabled"`
	Variable   bool   `json:"is_variable"`
}

func newTemplateReport(t core.RecurringTemplate) templateReport {
	return templateReport{
		ID:         t.ID,
		CategoryID: t.CategoryID,
		Category:   t.CategoryName,
		Type:       string(t.CategoryType),
		Amount:     t.Amount,
		DayOfMonth: t.DayOfMonth,
		Note:       t.Note,
		Enabled:    t.Enabled,
		Variable:   t.Variable,
	}
}

// NewTemplatesCommand creates the templates command group.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"recurring"},
		Short:   "Manage the recurring template catalogue",
	}

	cmd.AddCommand(newTemplatesListCommand(rootOpts))
	cmd.AddCommand(newTemplatesAddCommand(rootOpts))
	cmd.AddCommand(newTemplatesToggleCommand(rootOpts, "enable", true))
	cmd.AddCommand(newTemplatesToggleCommand(rootOpts, "disable", false))
	cmd.AddCommand(newTemplatesDeleteCommand(rootOpts))
	cmd.AddCommand(newTemplatesImportCommand(rootOpts))

	return cmd
}

func newTemplatesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			templates, err := s.repo.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			return printTemplates(s.out, templates)
		},
	}
}

func printTemplates(out *printer, templates []core.RecurringTemplate) error {
	reports := make([]templateReport, 0, len(templates))
	for _, t := range templates {
		reports = append(reports, newTemplateReport(t))
	}
	if out.json() {
		return out.JSON(reports)
	}

	rows := make([][]string, 0, len(reports))
	for _, t := range reports {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Category,
			t.Type,
			strconv.FormatInt(t.Amount, 10),
			strconv.Itoa(t.DayOfMonth),
			yesNo(t.Variable),
			yesNo(t.Enabled),
			t.Note,
		})
	}
	return out.Table([]string{"ID", "CATEGORY", "TYPE", "AMOUNT", "DAY", "VARIABLE", "ENABLED", "NOTE"}, rows)
}

func newTemplatesAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		categoryID int64
		amount     string
		day        int
		note       string
		variable   bool
		disabled   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring template",
		Example: `  ledgerctl templates add --category 5 --amount 850 --day 1 --note Rent
  ledgerctl templates add --category 4 --day 15 --variable --note Electricity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var parsed int64
			if amount != "" {
				a, err := core.ParseNonNegativeAmount(amount)
				if err != nil {
					return fmt.Errorf("%w: amount: %w", core.ErrValidation, err)
				}
				parsed = a
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
				return err
			}
			id, err := s.repo.CreateTemplate(ctx, core.RecurringTemplate{
				CategoryID: categoryID,
				Amount:     parsed,
				DayOfMonth: day,
				Note:       strings.TrimSpace(note),
				Enabled:    !disabled,
				Variable:   variable,
			})
			if err != nil {
				return err
			}
			return printCreated(s.out, id)
		},
	}

	cmd.Flags().Int64Var(&categoryID, "category", 0, "category id")
	cmd.Flags().StringVar(&amount, "amount", "", "base amount (optional for variable templates)")
	cmd.Flags().IntVar(&day, "day", 1, "day of month, 1-31; clamped to the month's last day")
	cmd.Flags().StringVar(&note, "note", "", "note written on generated transactions")
	cmd.Flags().BoolVar(&variable, "variable", false, "amount varies monthly and needs an override to apply")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the template disabled")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func printCreated(out *printer, id int64) error {
	if out.json() {
		return out.JSON(map[string]any{"ok": true, "id": id})
	}
	out.Linef("Created template %d", id)
	return nil
}

func newTemplatesToggleCommand(rootOpts *RootOptions, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.repo.UpdateTemplate(cmd.Context(), id, core.TemplatePatch{Enabled: &enabled})
			if err != nil {
				return err
			}
			if s.out.json() {
				return s.out.JSON(newTemplateReport(t))
			}
			s.out.Linef("Template %d %sd", t.ID, verb)
			return nil
		},
	}
}

func newTemplatesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a template; transactions it already produced are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.repo.DeleteTemplate(cmd.Context(), id); err != nil {
				return err
			}
			if s.out.json() {
				return s.out.JSON(map[string]any{"ok": true})
			}
			s.out.Linef("Deleted template %d", id)
			return nil
		},
	}
}

// templateFile is the YAML document read by templates import.
type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Category   string `yaml:"category"`
	Type       string `yaml:"type"`
	CategoryID int64  `yaml:"category_id"`
	Amount     string `yaml:"amount"`
	Day        int    `yaml:"day"`
	Note       string `yaml:"note"`
	Variable   bool   `yaml:"variable"`
	Enabled    *bool  `yaml:"enabled"`
}

// readTemplateFile parses a YAML template catalogue.
func readTemplateFile(data []byte) ([]templateEntry, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse template file: %w", core.ErrValidation, err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("%w: template file has no templates", core.ErrValidation)
	}
	return f.Templates, nil
}

func newTemplatesImportCommand(rootOpts *RootOptions) *cobra.Command {
	var createCategories bool

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Add templates from a YAML file",
		Long: `Add every template listed in a YAML file. Categories are referenced by id or
by name and type:

  templates:
    - category: Rent
      type: expense
      amount: "850"
      day: 1
      note: Rent
    - category_id: 4
      day: 15
      variable: true
      note: Electricity`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read template file: %w", err)
			}
			entries, err := readTemplateFile(data)
			if err != nil {
				return err
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := importTemplates(cmd.Context(), s, entries, createCategories)
			if s.out.json() {
				if jerr := s.out.JSON(map[string]any{"ok": err == nil, "ids": ids}); jerr != nil {
					return jerr
				}
				return err
			}
			s.out.Linef("Imported %d template(s)", len(ids))
			return err
		},
	}

	cmd.Flags().BoolVar(&createCategories, "create-categories", false, "create categories named in the file that do not exist")
	return cmd
}

// importTemplates creates entries in order and stops at the first invalid one.
func importTemplates(ctx context.Context, s *session, entries []templateEntry, createCategories bool) ([]int64, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(entries))
	for i, e := range entries {
		categoryID, err := resolveCategory(ctx, s, &categories, e, createCategories)
		if err != nil {
			return ids, fmt.Errorf("template %d: %w", i+1, err)
		}

		var amount int64
		if strings.TrimSpace(e.Amount) != "" {
			amount, err = core.ParseNonNegativeAmount(e.Amount)
			if err != nil {
				return ids, fmt.Errorf("%w: template %d: amount: %w", core.ErrValidation, i+1, err)
			}
		}
		enabled := e.Enabled == nil || *e.Enabled
		day := e.Day
		if day == 0 {
			day = 1
		}

		id, err := s.repo.CreateTemplate(ctx, core.RecurringTemplate{
			CategoryID: categoryID,
			Amount:     amount,
			DayOfMonth: day,
			Note:       strings.TrimSpace(e.Note),
			Enabled:    enabled,
			Variable:   e.Variable,
		})
		if err != nil {
			return ids, fmt.Errorf("template %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func resolveCategory(ctx context.Context, s *session, categories *[]core.Category, e templateEntry, create bool) (int64, error) {
	if e.CategoryID > 0 {
		for _, c := range *categories {
			if c.ID == e.CategoryID {
				return c.ID, nil
			}
		}
		return 0, fmt.Errorf("%w: category %d", core.ErrNotFound, e.CategoryID)
	}

	name := strings.TrimSpace(e.Category)
	typ := core.CategoryType(strings.ToLower(strings.TrimSpace(e.Type)))
	if typ == "" {
		typ = core.Expense
	}
	for _, c := range *categories {
		if strings.EqualFold(c.Name, name) && c.Type == typ {
			return c.ID, nil
		}
	}
	if !create {
		return 0, fmt.Errorf("%w: category %q (%s), use --create-categories to add it", core.ErrNotFound, name, typ)
	}

	c := core.Category{Name: name, Type: typ, Color: core.DefaultCategoryColor}
	id, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return 0, err
	}
	c.ID = id
	*categories = append(*categories, c)
	s.logger.Info("Category created", log.FieldCategoryID, id, "name", name, "type", string(typ))
	return id, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrValidation, s)
	}
	return id, nil
}
