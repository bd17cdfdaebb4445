// Package cli provides the ledgerctl commands and the initialization helpers
// shared by cmd/moneytracker, cmd/moneytracker-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneytracker/internal/amqp"
	"moneytracker/internal/config"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/storage"
)

// LoadEnvFile loads a .env file for local development. With no path the default
// .env is tried and a missing file is ignored; an explicit path must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// SetupLogger builds the process logger from cfg and makes it the slog default.
func SetupLogger(cfg *config.Config, out io.Writer, component string) *log.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// OpenLedger opens the SQLite ledger at cfg.SQLiteDBPath, migrating it if needed.
func OpenLedger(logger *log.Logger, cfg *config.Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		return nil, err
	}
	return repo, nil
}

// ConnectEvents dials the broker when AMQP is configured. With AMQP disabled it
// returns a nil client and a nil notifier, which the engine and the server ignore.
func ConnectEvents(logger *log.Logger, cfg *config.Config) (*amqp.Client, core.TransactionNotifier, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("Transaction events disabled - no AMQP_URL provided")
		return nil, nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, amqp.NewNotifier(client), nil
}

// GracefulShutdown returns a child of parent cancelled on SIGINT or SIGTERM. Once
// either ends it, cleanup runs with a context bounded by timeout; done is closed
// after it.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			if err := cleanup(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
				return
			}
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
