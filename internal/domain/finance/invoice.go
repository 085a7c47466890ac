package finance

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeInvoice names the invoice aggregate in events and errors
const AggregateTypeInvoice = "Invoice"

// Invoice is the aggregate whose paid amount the reconciliation ledger keeps
// in step with its payment history.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string
	ClientID      uuid.UUID
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	Status        InvoiceStatus
	IssueDate     time.Time
	DueDate       *time.Time
	PaidDate      *time.Time
	Notes         string
}

// NewInvoice creates a draft invoice
func NewInvoice(tenantID uuid.UUID, invoiceNumber string, clientID uuid.UUID, amount decimal.Decimal, dueDate *time.Time) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		ClientID:            clientID,
		Amount:              RoundMoney(amount),
		PaidAmount:          decimal.Zero,
		Status:              InvoiceStatusDraft,
		IssueDate:           time.Now(),
		DueDate:             dueDate,
	}, nil
}

// Remaining returns the amount still owed according to the stored paid amount
func (i *Invoice) Remaining() decimal.Decimal {
	return ComputeRemaining(i.Amount, i.PaidAmount)
}

// MarkSent moves a draft invoice to sent
func (i *Invoice) MarkSent() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send invoice in %s status", i.Status))
	}
	if err := i.transitionTo(InvoiceStatusSent); err != nil {
		return err
	}
	i.IncrementVersion()
	return nil
}

// MarkOverdue flags an unpaid or partially paid invoice past its due date
func (i *Invoice) MarkOverdue(now time.Time) error {
	if i.DueDate == nil || !now.After(*i.DueDate) {
		return shared.NewDomainError("NOT_DUE", "Invoice is not past its due date")
	}
	if err := i.transitionTo(InvoiceStatusOverdue); err != nil {
		return err
	}
	i.IncrementVersion()
	return nil
}

// Cancel cancels an invoice that has not received any money
func (i *Invoice) Cancel() error {
	if !i.PaidAmount.IsZero() {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel invoice with recorded payments")
	}
	if err := i.transitionTo(InvoiceStatusCancelled); err != nil {
		return err
	}
	i.IncrementVersion()
	return nil
}

// VerifyPaidAmount compares the stored paid amount with the payment history.
// A mismatch means the cache was written without its history, or vice versa.
func (i *Invoice) VerifyPaidAmount(payments []*Payment) (decimal.Decimal, error) {
	recomputed := SumApplied(payments)
	if !recomputed.Equal(i.PaidAmount) {
		return recomputed, shared.NewLedgerInconsistency(AggregateTypeInvoice, i.ID, recomputed, i.PaidAmount,
			"paid amount differs from payment history")
	}
	if recomputed.IsNegative() || recomputed.GreaterThan(i.Amount) {
		return recomputed, shared.NewLedgerInconsistency(AggregateTypeInvoice, i.ID, recomputed, i.Amount,
			"paid amount outside [0, amount]")
	}
	return recomputed, nil
}

// ApplyPayment moves the paid amount up by the applied part of payment and
// derives the new status.
func (i *Invoice) ApplyPayment(payment *Payment) error {
	if !i.Status.AcceptsPayments() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record payment on invoice in %s status", i.Status))
	}
	if payment.IsRefund || payment.InvoiceID != i.ID {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment does not belong to this invoice")
	}

	newPaid := RoundMoney(i.PaidAmount.Add(payment.AppliedAmount))
	if newPaid.GreaterThan(i.Amount) {
		return shared.NewLedgerInconsistency(AggregateTypeInvoice, i.ID, newPaid, i.Amount,
			"applied payment would exceed invoice amount")
	}

	next := NextInvoiceStatus(newPaid, i.Amount, i.Status)
	if err := i.transitionTo(next); err != nil {
		return err
	}
	wasPaid := i.PaidDate != nil
	i.PaidAmount = newPaid
	if next == InvoiceStatusPaid && !wasPaid {
		paidAt := time.Now()
		i.PaidDate = &paidAt
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	}
	i.AddDomainEvent(NewInvoicePaymentRecordedEvent(i, payment))
	i.IncrementVersion()
	return nil
}

// ApplyRefund lowers the paid amount by a refund payment.
func (i *Invoice) ApplyRefund(refund *Payment) error {
	if !refund.IsRefund || refund.InvoiceID != i.ID {
		return shared.NewDomainError("INVALID_PAYMENT", "Refund does not belong to this invoice")
	}
	refundAmount := refund.Amount.Neg()
	if refundAmount.GreaterThan(i.PaidAmount) {
		return NewRefundExceedsPaidError(i.ID, refundAmount, i.PaidAmount)
	}

	newPaid := RoundMoney(i.PaidAmount.Sub(refundAmount))
	next := RefundStatus(newPaid, i.Amount, i.Status)
	if err := i.transitionTo(next); err != nil {
		return err
	}
	i.PaidAmount = newPaid
	if next != InvoiceStatusPaid {
		i.PaidDate = nil
	}
	i.AddDomainEvent(NewInvoiceRefundedEvent(i, refund))
	i.IncrementVersion()
	return nil
}

func (i *Invoice) transitionTo(next InvoiceStatus) error {
	if !i.Status.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Invoice cannot move from %s to %s", i.Status, next))
	}
	i.Status = next
	i.Touch()
	return nil
}
