package event

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per ledger movement
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler logging under the "audit" name
func NewAuditLogHandler(log *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: log.Named("audit")}
}

// Handle logs the event with the fields relevant to its type
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
	}

	switch e := event.(type) {
	case *finance.InvoicePaymentRecordedEvent:
		fields = append(fields,
			zap.String("payment_id", e.PaymentID.String()),
			logger.Money("amount", e.Amount),
			logger.Money("applied", e.AppliedAmount),
			logger.Money("paid_amount", e.PaidAmount))
	case *finance.InvoiceRefundedEvent:
		fields = append(fields,
			logger.Money("refund", e.RefundAmount),
			logger.Money("paid_amount", e.PaidAmount))
	case *partner.ClientCreditChangedEvent:
		fields = append(fields,
			zap.String("entry_type", e.EntryType.String()),
			logger.Money("amount", e.Amount),
			logger.Money("previous_balance", e.PreviousBalance),
			logger.Money("new_balance", e.NewBalance))
	case *finance.PaymentSourceBalanceChangedEvent:
		fields = append(fields,
			logger.Money("amount", e.Amount),
			logger.Money("balance_after", e.BalanceAfter))
	case *finance.ExpenseSettledEvent:
		fields = append(fields, logger.Money("amount", e.Amount))
	}

	logger.L(ctx, h.logger).Info("Ledger event", fields...)
	return nil
}

// EventTypes subscribes the handler to every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
