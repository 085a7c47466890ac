// Command ledgerctl runs ledger maintenance against the configured database:
// balance verification and pending credit replay.
package main

import (
	"context"
	"fmt"
	"os"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	root := newRootCmd(openLedger, os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openLedger connects to the configured database and wires the services the
// commands need. Ledger events are written to the audit log only.
func openLedger(ctx context.Context, logLevel string) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))
	if err := bus.Start(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	ledger := appfinance.NewLedger(appfinance.LedgerConfig{
		TxScope:        persistence.NewGormTransactionScope(db.DB, cfg.Ledger.LockTimeout),
		EventPublisher: bus,
		Logger:         log,
		Retry: appfinance.RetryPolicy{
			MaxAttempts: cfg.Ledger.RetryAttempts,
			BaseDelay:   cfg.Ledger.RetryBaseDelay,
			MaxDelay:    cfg.Ledger.RetryMaxDelay,
		},
	}, nil)

	return &services{
		verifier:     ledger.Reconciliation,
		replayer:     ledger.Payments,
		defaultBatch: cfg.Ledger.ReplayBatch,
		close: func() error {
			_ = bus.Stop(context.Background())
			_ = log.Sync()
			if err := db.Close(); err != nil {
				log.Warn("Error closing database", zap.Error(err))
				return err
			}
			return nil
		},
	}, nil
}
