package main

import (
	"context"
	"errors"
	"os"
	"time"

	"moneytracker/internal/cli"
	"moneytracker/internal/config"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/sheets"
	"moneytracker/internal/sheets/google"
	"moneytracker/internal/sheets/memory"
	"moneytracker/internal/worker"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	_ = cli.LoadEnvFile("")

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, os.Stdout, log.ComponentWorker)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		return err
	}
	logger.Info("Starting moneytracker-worker", log.FieldOperation, log.OpStartup)

	repo, err := cli.OpenLedger(logger, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	root, stop := context.WithCancel(context.Background())
	defer stop()

	var rows sheets.RowWriter
	if cfg.SheetsEnabled() {
		client, err := google.New(root, cli.SheetsConfig(cfg), logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			return err
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		rows = client
	} else {
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory only")
		rows = memory.New()
	}

	amqpClient, _, err := cli.ConnectEvents(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		return err
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(repo, rows, logger)

	// Catch up on events lost while the worker was down.
	month := core.MonthKey(time.Now().Format("2006-01"))
	if _, err := mirror.BackfillMonth(root, month); err != nil {
		logger.Error("Startup backfill failed", log.FieldMonthKey, string(month), log.FieldError, err)
	}

	ctx, done := cli.GracefulShutdown(root, logger, cfg.ShutdownTimeout, nil)
	err = amqpClient.ConsumeTransactionEvents(ctx, mirror.HandleEvent)
	stop()
	<-done

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldOperation, log.OpConsume, log.FieldError, err)
		return err
	}
	logger.Info("Worker stopped gracefully")
	return nil
}
