package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"moneytracker/internal/config"
	"moneytracker/internal/core"
	"moneytracker/internal/sheets"
	"moneytracker/internal/sheets/google"
	"moneytracker/internal/sheets/memory"
	"moneytracker/internal/worker"
)

// NewMirrorCommand creates the mirror command group.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Maintain the spreadsheet mirror",
	}
	cmd.AddCommand(newMirrorBackfillCommand(rootOpts))
	cmd.AddCommand(newMirrorAuthCommand())
	return cmd
}

// SheetsConfig maps the environment configuration onto the Sheets client.
func SheetsConfig(cfg *config.Config) google.Config {
	return google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	}
}

func newMirrorAuthCommand() *cobra.Command {
	var (
		listen    string
		tokenFile string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize the mirror with a Google account and save the OAuth token",
		Long: `Run the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE and save the token for the worker. The client must allow
http://localhost:<port>/callback as a redirect URI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if !cfg.OAuthConfigured() {
				return fmt.Errorf("%w: set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE", core.ErrValidation)
			}
			if tokenFile == "" {
				tokenFile = cfg.GoogleOAuthTokenFile
			}
			if tokenFile == "" {
				tokenFile = "token.json"
			}

			conf, err := google.OAuthConfig(SheetsConfig(cfg))
			if err != nil {
				return err
			}
			tok, err := google.Authorize(cmd.Context(), conf, listen, cmd.OutOrStdout(), timeout)
			if err != nil {
				return err
			}
			if err := google.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", tokenFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "localhost:8085", "address of the local callback listener")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "where to save the token (default GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for consent")

	return cmd
}

func newMirrorBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		month  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Append a month's transactions missing from the spreadsheet",
		Long: `Append every transaction of the month that the mirror does not hold yet.
Use it after the worker was down and events were lost. With --dry-run nothing is
written to the spreadsheet and every transaction of the month is counted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseMonthKey(month)
			if err != nil {
				return err
			}

			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			var rows sheets.RowWriter
			if dryRun {
				rows = memory.New()
			} else {
				if !s.cfg.SheetsEnabled() {
					return fmt.Errorf("%w: GOOGLE_SPREADSHEET_ID is not set; use --dry-run", core.ErrValidation)
				}
				client, err := google.New(ctx, SheetsConfig(s.cfg), s.logger)
				if err != nil {
					return err
				}
				rows = client
			}

			added, err := worker.NewMirrorWorker(s.repo, rows, s.logger).BackfillMonth(ctx, key)
			if err != nil {
				return err
			}
			if s.out.json() {
				return s.out.JSON(map[string]any{"ok": true, "month_key": string(key), "added": added, "dry_run": dryRun})
			}
			if dryRun {
				s.out.Linef("Would mirror %d transaction(s) for %s", added, key)
				return nil
			}
			s.out.Linef("Mirrored %d transaction(s) for %s", added, key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month to backfill, YYYY-MM")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count without writing to the spreadsheet")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}
