package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/storage"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so DB instrumentation can use its providers
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}

	if err := migration.ApplyPending(cfg.Database.DSN(), log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	if providers.Enabled() {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, nil, log); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
		if _, err := telemetry.RegisterDBPoolMetrics(providers.Meter("ledger/db"), sqlDB); err != nil {
			log.Warn("Database pool metrics disabled", zap.Error(err))
		}
	}
	metrics, err := telemetry.NewLedgerMetrics(providers.Meter("ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Events: audit log always, Kafka when enabled
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))
	var kafkaHandler *event.KafkaEventHandler
	if cfg.Kafka.Enabled {
		kafkaHandler = event.NewKafkaEventHandler(cfg.Kafka, log)
		bus.Subscribe(kafkaHandler)
		log.Info("Publishing ledger events to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var (
		attachments appfinance.AttachmentVerifier
		uploads     handler.ReceiptUploader
	)
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3AttachmentStore(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize attachment storage", zap.Error(err))
		}
		// Local S3-compatible stores start empty
		if cfg.App.Env != "production" {
			if err := s3Store.EnsureBucket(ctx); err != nil {
				log.Warn("Attachment bucket check failed", zap.Error(err))
			}
		}
		attachments, uploads = s3Store, s3Store
	} else {
		log.Warn("Object storage disabled, expense attachments are not verified")
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	ledger := appfinance.NewLedger(appfinance.LedgerConfig{
		TxScope:        persistence.NewGormTransactionScope(db.DB, cfg.Ledger.LockTimeout),
		EventPublisher: bus,
		Metrics:        metrics,
		Logger:         log,
		Retry: appfinance.RetryPolicy{
			MaxAttempts: cfg.Ledger.RetryAttempts,
			BaseDelay:   cfg.Ledger.RetryBaseDelay,
			MaxDelay:    cfg.Ledger.RetryMaxDelay,
		},
	}, attachments)

	var replay *scheduler.CreditReplayScheduler
	if cfg.Ledger.ReplayInterval > 0 {
		replay, err = scheduler.NewCreditReplayScheduler(scheduler.CreditReplayConfig{
			Interval:  cfg.Ledger.ReplayInterval,
			BatchSize: cfg.Ledger.ReplayBatch,
		}, ledger.Payments, log)
		if err != nil {
			log.Fatal("Failed to create credit replay scheduler", zap.Error(err))
		}
		_ = replay.Start(ctx)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := router.New(router.Config{
		Logger:           log,
		HTTP:             cfg.HTTP,
		Tokens:           auth.NewJWTService(cfg.JWT),
		IdempotencyStore: idempotencyStore,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     providers.Enabled(),
		},
	}, router.Handlers{
		Invoices: handler.NewInvoicePaymentHandler(ledger.Payments, ledger.Refunds, ledger.Reconciliation),
		Credits:  handler.NewClientCreditHandler(ledger.Credits, ledger.CreditApplication, ledger.Reconciliation),
		Expenses: handler.NewExpenseHandler(ledger.Expenses, uploads),
		Sources:  handler.NewPaymentSourceHandler(ledger.Sources, ledger.Reconciliation),
		Admin:    handler.NewAdminHandler(ledger.Payments),
		System:   handler.NewSystemHandler(version, map[string]handler.Pinger{"database": db}),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if replay != nil {
		if err := replay.Stop(shutdownCtx); err != nil {
			log.Warn("Credit replay scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if kafkaHandler != nil {
		if err := kafkaHandler.Close(shutdownCtx); err != nil {
			log.Warn("Kafka writer did not close cleanly", zap.Error(err))
		}
	}
	if closer, ok := idempotencyStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited")
}
