package finance

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger rejection codes
const (
	CodeOverpaymentDetected = "OVERPAYMENT_DETECTED"
	CodeRefundExceedsPaid   = "REFUND_EXCEEDS_PAID"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
)

// OverpaymentDetectedError rejects a payment larger than what remains on the
// invoice when no administrator approved the excess. The caller may retry
// with approval; nothing was recorded.
type OverpaymentDetectedError struct {
	InvoiceID         uuid.UUID
	PaymentAmount     decimal.Decimal
	RemainingAmount   decimal.Decimal
	OverpaymentAmount decimal.Decimal
	InvoiceAmount     decimal.Decimal
	CurrentPaidAmount decimal.Decimal
}

func (e *OverpaymentDetectedError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance %s by %s; admin approval required",
		e.PaymentAmount.StringFixed(2), e.RemainingAmount.StringFixed(2), e.OverpaymentAmount.StringFixed(2))
}

// Unwrap exposes the coded domain error
func (e *OverpaymentDetectedError) Unwrap() error {
	return shared.NewDomainError(CodeOverpaymentDetected, e.Error())
}

// Details returns the numeric breakdown for the approval flow
func (e *OverpaymentDetectedError) Details() map[string]any {
	return map[string]any{
		"invoice_id":          e.InvoiceID.String(),
		"payment_amount":      e.PaymentAmount.StringFixed(2),
		"remaining_amount":    e.RemainingAmount.StringFixed(2),
		"overpayment_amount":  e.OverpaymentAmount.StringFixed(2),
		"invoice_amount":      e.InvoiceAmount.StringFixed(2),
		"current_paid_amount": e.CurrentPaidAmount.StringFixed(2),
	}
}

// RefundExceedsPaidError rejects a refund larger than the invoice's paid amount
type RefundExceedsPaidError struct {
	InvoiceID    uuid.UUID
	RefundAmount decimal.Decimal
	PaidAmount   decimal.Decimal
}

// NewRefundExceedsPaidError creates a RefundExceedsPaidError
func NewRefundExceedsPaidError(invoiceID uuid.UUID, refund, paid decimal.Decimal) *RefundExceedsPaidError {
	return &RefundExceedsPaidError{InvoiceID: invoiceID, RefundAmount: refund, PaidAmount: paid}
}

func (e *RefundExceedsPaidError) Error() string {
	return fmt.Sprintf("refund of %s exceeds paid amount %s",
		e.RefundAmount.StringFixed(2), e.PaidAmount.StringFixed(2))
}

// Unwrap exposes the coded domain error
func (e *RefundExceedsPaidError) Unwrap() error {
	return shared.NewDomainError(CodeRefundExceedsPaid, e.Error())
}

// Details returns the amounts that caused the rejection
func (e *RefundExceedsPaidError) Details() map[string]any {
	return map[string]any{
		"invoice_id":    e.InvoiceID.String(),
		"refund_amount": e.RefundAmount.StringFixed(2),
		"paid_amount":   e.PaidAmount.StringFixed(2),
	}
}

// InsufficientFundsError rejects a debit that would overdraw a payment source
// that is not allowed to go negative.
type InsufficientFundsError struct {
	SourceID  uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("payment source balance %s is insufficient for %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

// Unwrap exposes the coded domain error
func (e *InsufficientFundsError) Unwrap() error {
	return shared.NewDomainError(CodeInsufficientFunds, e.Error())
}

// Details returns the amounts that caused the rejection
func (e *InsufficientFundsError) Details() map[string]any {
	return map[string]any{
		"source_id": e.SourceID.String(),
		"requested": e.Requested.StringFixed(2),
		"available": e.Available.StringFixed(2),
	}
}
