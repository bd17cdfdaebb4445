package cli

import (
	"github.com/spf13/cobra"

	"moneytracker/internal/core"
)

// NewMonthsCommand creates the months command. Without a subcommand it lists
// the known months, newest first.
func NewMonthsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "months",
		Short: "List ledger months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			months, err := s.repo.ListMonths(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(months))
			for _, m := range months {
				keys = append(keys, string(m))
			}
			if s.out.json() {
				return s.out.JSON(map[string]any{"months": keys})
			}
			for _, k := range keys {
				s.out.Linef("%s", k)
			}
			return nil
		},
	}

	cmd.AddCommand(newMonthsAddCommand(rootOpts))

	return cmd
}

func newMonthsAddCommand(rootOpts *RootOptions) *cobra.Command {
	var copyBudgets bool

	cmd := &cobra.Command{
		Use:   "add <YYYY-MM>",
		Short: "Create a month and its goal row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if _, err := s.repo.EnsureMonth(ctx, month); err != nil {
				return err
			}
			if err := s.repo.EnsureGoalRow(ctx, month); err != nil {
				return err
			}
			copied := 0
			if copyBudgets {
				if copied, err = s.repo.CopyBudgets(ctx, month.Previous(), month); err != nil {
					return err
				}
			}

			if s.out.json() {
				return s.out.JSON(map[string]any{"ok": true, "month_key": string(month), "budgets_copied": copied})
			}
			s.out.Linef("Month %s ready", month)
			if copyBudgets {
				s.out.Linef("Copied %d budget(s) from %s", copied, month.Previous())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyBudgets, "copy-budgets", false, "copy the previous month's budgets")

	return cmd
}
