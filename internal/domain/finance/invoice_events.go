package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice event types
const (
	EventTypeInvoicePaymentRecorded = "InvoicePaymentRecorded"
	EventTypeInvoicePaid            = "InvoicePaid"
	EventTypeInvoiceRefunded        = "InvoiceRefunded"
)

// InvoicePaymentRecordedEvent is raised when money or credit is applied to an invoice
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	Overpayment   decimal.Decimal `json:"overpayment"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Status        InvoiceStatus   `json:"status"`
}

// NewInvoicePaymentRecordedEvent creates a new InvoicePaymentRecordedEvent
func NewInvoicePaymentRecordedEvent(inv *Invoice, p *Payment) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentRecorded, AggregateTypeInvoice, &inv.TenantAggregateRoot),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		PaymentID:       p.ID,
		Method:          p.Method,
		Amount:          p.Amount,
		AppliedAmount:   p.AppliedAmount,
		Overpayment:     p.Overpayment(),
		PaidAmount:      inv.PaidAmount,
		Status:          inv.Status,
	}
}

// InvoicePaidEvent is raised when an invoice becomes fully paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidDate != nil {
		paidAt = *inv.PaidDate
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, &inv.TenantAggregateRoot),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		Amount:          inv.Amount,
		PaidAt:          paidAt,
	}
}

// InvoiceRefundedEvent is raised when money is paid back against an invoice
type InvoiceRefundedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Status        InvoiceStatus   `json:"status"`
}

// NewInvoiceRefundedEvent creates a new InvoiceRefundedEvent
func NewInvoiceRefundedEvent(inv *Invoice, refund *Payment) *InvoiceRefundedEvent {
	return &InvoiceRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceRefunded, AggregateTypeInvoice, &inv.TenantAggregateRoot),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		PaymentID:       refund.ID,
		RefundAmount:    refund.Amount.Neg(),
		PaidAmount:      inv.PaidAmount,
		Status:          inv.Status,
	}
}
