package finance

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerMetrics receives business measurements from the ledger services.
// The telemetry package provides the OpenTelemetry implementation.
type LedgerMetrics interface {
	RecordPayment(ctx context.Context, method string, outcome string, amount decimal.Decimal)
	RecordRefund(ctx context.Context, amount decimal.Decimal)
	RecordCreditMovement(ctx context.Context, entryType string, amount decimal.Decimal)
	RecordSourceMovement(ctx context.Context, txType string, amount decimal.Decimal)
	RecordInconsistency(ctx context.Context, entityType string)
	RecordRetry(ctx context.Context, operation string)
}

type noopMetrics struct{}

func (noopMetrics) RecordPayment(context.Context, string, string, decimal.Decimal) {}
func (noopMetrics) RecordRefund(context.Context, decimal.Decimal)                  {}
func (noopMetrics) RecordCreditMovement(context.Context, string, decimal.Decimal)  {}
func (noopMetrics) RecordSourceMovement(context.Context, string, decimal.Decimal)  {}
func (noopMetrics) RecordInconsistency(context.Context, string)                    {}
func (noopMetrics) RecordRetry(context.Context, string)                            {}

// LedgerConfig holds the collaborators shared by all ledger services
type LedgerConfig struct {
	TxScope        TransactionScope
	EventPublisher shared.EventPublisher
	Metrics        LedgerMetrics
	Logger         *zap.Logger
	Retry          RetryPolicy
}

// ledgerRuntime is embedded by every service and carries the plumbing
// around a ledger transaction: retries, logging, metrics and publishing.
type ledgerRuntime struct {
	txScope   TransactionScope
	publisher shared.EventPublisher
	metrics   LedgerMetrics
	logger    *zap.Logger
	retry     RetryPolicy
}

func newLedgerRuntime(config LedgerConfig) ledgerRuntime {
	rt := ledgerRuntime{
		txScope:   config.TxScope,
		publisher: config.EventPublisher,
		metrics:   config.Metrics,
		logger:    config.Logger,
		retry:     config.Retry,
	}
	if rt.metrics == nil {
		rt.metrics = noopMetrics{}
	}
	if rt.logger == nil {
		rt.logger = zap.NewNop()
	}
	if rt.retry.MaxAttempts == 0 {
		rt.retry = DefaultRetryPolicy()
	}
	return rt
}

// inTx runs fn in a transaction, re-running the whole transaction on
// retryable failures so every attempt reads fresh state.
func (rt *ledgerRuntime) inTx(ctx context.Context, operation string, fn func(repos TransactionalRepositories) error) error {
	return rt.retry.Do(ctx, func() error {
		return rt.txScope.Execute(ctx, fn)
	}, func(attempt int, err error) {
		rt.metrics.RecordRetry(ctx, operation)
		rt.logger.Warn("Retrying ledger transaction",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
}

// observe logs and counts ledger inconsistencies. It returns err unchanged.
func (rt *ledgerRuntime) observe(ctx context.Context, operation string, err error) error {
	if inc, ok := asInconsistency(err); ok {
		rt.metrics.RecordInconsistency(ctx, inc.EntityType)
		rt.logger.Error("Ledger inconsistency detected",
			zap.String("operation", operation),
			zap.String("entity_type", inc.EntityType),
			zap.String("entity_id", inc.EntityID.String()),
			zap.String("expected", inc.Expected.StringFixed(2)),
			zap.String("actual", inc.Actual.StringFixed(2)),
			zap.String("reason", inc.Reason))
	}
	return err
}

// publish sends the pending events of the aggregates after commit.
// Publishing failures never undo a committed ledger write.
func (rt *ledgerRuntime) publish(ctx context.Context, aggregates ...shared.EventSource) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events := agg.PullDomainEvents()
		if rt.publisher == nil || len(events) == 0 {
			continue
		}
		if err := rt.publisher.Publish(ctx, events...); err != nil {
			rt.logger.Warn("Failed to publish ledger events",
				zap.Int("count", len(events)),
				zap.Error(err))
		}
	}
}

func asInconsistency(err error) (*shared.LedgerInconsistencyError, bool) {
	var inc *shared.LedgerInconsistencyError
	if errors.As(err, &inc) {
		return inc, true
	}
	return nil, false
}
