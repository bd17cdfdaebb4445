package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"moneytracker/internal/config"
	"moneytracker/internal/log"
	"moneytracker/internal/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	DBPath  string
	Output  string // "text" | "json"
	Verbose bool
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"text", "json"}

// NewRootCommand creates the ledgerctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Manage the moneytracker ledger from the command line",
		Long: `ledgerctl works directly on the moneytracker SQLite ledger.

It applies recurring templates to a month, maintains the template catalogue,
moves months in and out as JSON or CSV, and backfills the spreadsheet mirror.
Configuration comes from the same environment variables as the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs)
			}
			return LoadEnvFile(opts.EnvFile)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment from this file (default .env when present)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewTemplatesCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewMonthsCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))

	return cmd
}

// session is what one command invocation works with.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	repo   *storage.SQLiteRepository
	out    *printer
}

func (s *session) Close() error {
	return s.repo.Close()
}

// open loads configuration, applies the global flag overrides and opens the ledger.
// Logs go to stderr so they never mix with command output.
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg := config.Load()
	if o.DBPath != "" {
		cfg.SQLiteDBPath = o.DBPath
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	} else if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := SetupLogger(cfg, cmd.ErrOrStderr(), log.ComponentCLI)
	repo, err := OpenLedger(logger, cfg)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		logger: logger,
		repo:   repo,
		out:    newPrinter(o.Output, cmd.OutOrStdout()),
	}, nil
}
