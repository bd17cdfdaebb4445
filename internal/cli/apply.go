package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/recurring"
)

type applyReport struct {
	MonthKey     string          `json:"month_key"`
	AppliedCount int             `json:"applied_count"`
	Outcomes     []outcomeReport `json:"outcomes"`
	Error        string          `json:"error,omitempty"`
}

type outcomeReport struct {
	TemplateID    int64  `json:"template_id"`
	Status        string `json:"status"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Date          string `json:"date,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		month     string
		overrides []string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply enabled recurring templates to a month",
		Long: `Materialize every enabled recurring template into a transaction for the month.

Each template is applied at most once per month, so running apply again is safe.
Variable templates need an override to be applied:

  ledgerctl apply --month 2024-05 --override 3=120 --override 7=45.50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseOverrides(overrides)
			if err != nil {
				return err
			}
			return runApply(cmd, rootOpts, month, parsed)
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month to apply, YYYY-MM")
	cmd.Flags().StringArrayVar(&overrides, "override", nil, "amount for one template, ID=AMOUNT (repeatable)")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

func parseOverrides(pairs []string) (core.Overrides, error) {
	out := make(core.Overrides, len(pairs))
	for _, p := range pairs {
		id, amount, err := core.ParseOverride(p)
		if err != nil {
			return nil, err
		}
		out.Set(id, amount)
	}
	return out, nil
}

func runApply(cmd *cobra.Command, rootOpts *RootOptions, month string, overrides core.Overrides) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	opts := []recurring.Option{
		recurring.WithLogger(s.logger),
		recurring.WithDefaultNote(s.cfg.DefaultRecurringNote),
	}
	client, notifier, err := ConnectEvents(s.logger, s.cfg)
	if err != nil {
		s.logger.Warn("Applying without transaction events", log.FieldError, err)
	} else if client != nil {
		defer client.Close()
		opts = append(opts, recurring.WithNotifier(notifier))
	}

	res, applyErr := recurring.NewEngine(s.repo, opts...).Apply(ctx, month, overrides)
	var partial *recurring.ApplyError
	if applyErr != nil && !errors.As(applyErr, &partial) {
		return applyErr
	}

	report := newApplyReport(res, applyErr)
	if s.out.json() {
		if err := s.out.JSON(report); err != nil {
			return err
		}
		return applyErr
	}

	s.out.Linef("Applied %d template(s) to %s", report.AppliedCount, report.MonthKey)
	if len(report.Outcomes) > 0 {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, o := range report.Outcomes {
			rows = append(rows, []string{
				strconv.FormatInt(o.TemplateID, 10),
				o.Status,
				idOrDash(o.TransactionID),
				idOrDash(o.Amount),
				dashIfEmpty(o.Date),
				o.Error,
			})
		}
		if err := s.out.Table([]string{"TEMPLATE", "STATUS", "TX", "AMOUNT", "DATE", "ERROR"}, rows); err != nil {
			return err
		}
	}
	return applyErr
}

func newApplyReport(res recurring.Result, err error) applyReport {
	r := applyReport{
		MonthKey:     string(res.MonthKey),
		AppliedCount: res.Applied,
		Outcomes:     make([]outcomeReport, 0, len(res.Outcomes)),
	}
	for _, o := range res.Outcomes {
		or := outcomeReport{
			TemplateID:    o.TemplateID,
			Status:        string(o.Status),
			TransactionID: o.TransactionID,
			Amount:        o.Amount,
			Date:          o.Date,
		}
		if o.Err != nil {
			or.Error = o.Err.Error()
		}
		r.Outcomes = append(r.Outcomes, or)
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func idOrDash(n int64) string {
	if n == 0 {
		return "-"
	}
	return strconv.FormatInt(n, 10)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
