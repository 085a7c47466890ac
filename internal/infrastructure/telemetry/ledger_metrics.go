package telemetry

import (
	"context"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// amountBuckets are histogram boundaries for money amounts
var amountBuckets = []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000}

// LedgerMetrics records ledger movements as OpenTelemetry instruments
type LedgerMetrics struct {
	payments        metric.Int64Counter
	paymentAmount   metric.Float64Histogram
	refunds         metric.Int64Counter
	refundAmount    metric.Float64Histogram
	creditMovements metric.Int64Counter
	creditAmount    metric.Float64Histogram
	sourceMovements metric.Int64Counter
	sourceAmount    metric.Float64Histogram
	inconsistencies metric.Int64Counter
	retries         metric.Int64Counter
}

var _ appfinance.LedgerMetrics = (*LedgerMetrics)(nil)

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.payments, "ledger_payments_total", "Invoice payments by method and outcome"},
		{&m.refunds, "ledger_refunds_total", "Invoice refunds"},
		{&m.creditMovements, "ledger_credit_movements_total", "Client credit ledger entries by type"},
		{&m.sourceMovements, "ledger_source_movements_total", "Payment source transactions by type"},
		{&m.inconsistencies, "ledger_inconsistencies_total", "Cached balances found to disagree with history"},
		{&m.retries, "ledger_retries_total", "Ledger transactions re-run after a retryable failure"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.paymentAmount, "ledger_payment_amount", "Invoice payment amounts"},
		{&m.refundAmount, "ledger_refund_amount", "Invoice refund amounts"},
		{&m.creditAmount, "ledger_credit_amount", "Client credit entry amounts"},
		{&m.sourceAmount, "ledger_source_amount", "Absolute payment source transaction amounts"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithExplicitBucketBoundaries(amountBuckets...)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordPayment counts a payment attempt and, unless rejected or failed,
// its amount
func (m *LedgerMetrics) RecordPayment(ctx context.Context, method, outcome string, amount decimal.Decimal) {
	attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("outcome", outcome))
	m.payments.Add(ctx, 1, attrs)
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), attrs)
}

// RecordRefund counts a refund
func (m *LedgerMetrics) RecordRefund(ctx context.Context, amount decimal.Decimal) {
	m.refunds.Add(ctx, 1)
	m.refundAmount.Record(ctx, amount.Abs().InexactFloat64())
}

// RecordCreditMovement counts a credit ledger entry
func (m *LedgerMetrics) RecordCreditMovement(ctx context.Context, entryType string, amount decimal.Decimal) {
	attrs := metric.WithAttributes(attribute.String("type", entryType))
	m.creditMovements.Add(ctx, 1, attrs)
	m.creditAmount.Record(ctx, amount.Abs().InexactFloat64(), attrs)
}

// RecordSourceMovement counts a payment source transaction
func (m *LedgerMetrics) RecordSourceMovement(ctx context.Context, txType string, amount decimal.Decimal) {
	attrs := metric.WithAttributes(attribute.String("type", txType))
	m.sourceMovements.Add(ctx, 1, attrs)
	m.sourceAmount.Record(ctx, amount.Abs().InexactFloat64(), attrs)
}

// RecordInconsistency counts a detected ledger inconsistency
func (m *LedgerMetrics) RecordInconsistency(ctx context.Context, entityType string) {
	m.inconsistencies.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entityType)))
}

// RecordRetry counts a retried ledger transaction
func (m *LedgerMetrics) RecordRetry(ctx context.Context, operation string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
