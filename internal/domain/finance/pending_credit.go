package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingCreditStatus tracks whether an overpayment has reached the client's credit ledger
type PendingCreditStatus string

const (
	PendingCreditStatusPending PendingCreditStatus = "pending"
	PendingCreditStatusApplied PendingCreditStatus = "applied"
	PendingCreditStatusFailed  PendingCreditStatus = "failed"
)

// PendingCredit is written in the same transaction as an approved
// overpayment. It stays pending until the credit ledger confirms the
// matching credit_added entry, so a crash between the two writes is
// recoverable by replay.
type PendingCredit struct {
	shared.BaseEntity
	TenantID  uuid.UUID
	ClientID  uuid.UUID
	InvoiceID uuid.UUID
	PaymentID uuid.UUID
	Amount    decimal.Decimal
	Status    PendingCreditStatus
	Attempts  int
	LastError string
	AppliedAt *time.Time
}

// NewPendingCredit records the overpayment part of payment as owed credit
func NewPendingCredit(payment *Payment) (*PendingCredit, error) {
	overpayment := payment.Overpayment()
	if !overpayment.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code, "Payment carries no overpayment")
	}
	return &PendingCredit{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   payment.TenantID,
		ClientID:   payment.ClientID,
		InvoiceID:  payment.InvoiceID,
		PaymentID:  payment.ID,
		Amount:     overpayment,
		Status:     PendingCreditStatusPending,
	}, nil
}

// IsSettled returns true once the credit reached the ledger
func (p *PendingCredit) IsSettled() bool {
	return p.Status == PendingCreditStatusApplied
}

// MarkApplied records that the credit ledger holds the entry
func (p *PendingCredit) MarkApplied() {
	now := time.Now()
	p.Status = PendingCreditStatusApplied
	p.AppliedAt = &now
	p.LastError = ""
	p.Attempts++
	p.Touch()
}

// MarkFailed records a failed attempt; the row stays eligible for replay
func (p *PendingCredit) MarkFailed(err error) {
	p.Status = PendingCreditStatusFailed
	p.Attempts++
	if err != nil {
		p.LastError = err.Error()
	}
	p.Touch()
}
