package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"moneytracker/internal/cli"
	"moneytracker/internal/config"
	"moneytracker/internal/export"
	apphttp "moneytracker/internal/http"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/recurring"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// .env is optional outside local development
	_ = cli.LoadEnvFile("")

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, os.Stdout, log.ComponentApp)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		return err
	}
	logger.Info("Starting moneytracker", log.FieldOperation, log.OpStartup, "port", cfg.Port, "db", cfg.SQLiteDBPath)

	repo, err := cli.OpenLedger(logger, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	amqpClient, notifier, err := cli.ConnectEvents(logger, cfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without transaction events", log.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
	}

	engine := recurring.NewEngine(repo,
		recurring.WithLogger(logger),
		recurring.WithNotifier(notifier),
		recurring.WithDefaultNote(cfg.DefaultRecurringNote))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:    repo,
		Engine:    engine,
		Porter:    export.NewService(repo, logger),
		Notifier:  notifier,
		Logger:    logger,
		RateLimit: ratelimit.DefaultConfig(),
	})

	root, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(root, logger, cfg.ShutdownTimeout, srv.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// A failed listener must still run the shutdown path.
		<-gctx.Done()
		stop()
		return nil
	})

	err = g.Wait()
	<-done
	if err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
