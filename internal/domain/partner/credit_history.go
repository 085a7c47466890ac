package partner

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditEntryType represents the kind of change recorded in a client's credit ledger
type CreditEntryType string

const (
	// CreditEntryTypeAdded records an overpayment or manual grant entering the credit pool
	CreditEntryTypeAdded CreditEntryType = "credit_added"
	// CreditEntryTypeUsed records credit spent against an invoice
	CreditEntryTypeUsed CreditEntryType = "credit_used"
	// CreditEntryTypeRefunded records credit paid back to the client outside the system
	CreditEntryTypeRefunded CreditEntryType = "credit_refunded"
	// CreditEntryTypeApplied records credit consumed by another billing process
	CreditEntryTypeApplied CreditEntryType = "credit_applied"
)

// String returns the string representation of CreditEntryType
func (t CreditEntryType) String() string {
	return string(t)
}

// IsValid returns true if the entry type is valid
func (t CreditEntryType) IsValid() bool {
	switch t {
	case CreditEntryTypeAdded, CreditEntryTypeUsed, CreditEntryTypeRefunded, CreditEntryTypeApplied:
		return true
	}
	return false
}

// IsIncrease returns true if this entry type adds to the balance
func (t CreditEntryType) IsIncrease() bool {
	return t == CreditEntryTypeAdded
}

// IsSpend returns true for the types accepted by a spend operation
func (t CreditEntryType) IsSpend() bool {
	return t == CreditEntryTypeUsed || t == CreditEntryTypeApplied
}

// CreditContext links a credit ledger entry to what caused it
type CreditContext struct {
	InvoiceID   *uuid.UUID
	PaymentID   *uuid.UUID
	Reference   string
	Description string
	OperatorID  *uuid.UUID
}

// CreditHistoryEntry is an immutable row of a client's credit ledger.
// Amount is always positive; its direction is given by Type.
type CreditHistoryEntry struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	ClientID        uuid.UUID
	Type            CreditEntryType
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	InvoiceID       *uuid.UUID
	PaymentID       *uuid.UUID
	Reference       string
	Description     string
	OperatorID      *uuid.UUID
	// Sequence orders entries of one client without gaps, starting at 1.
	Sequence int64
}

// NewCreditHistoryEntry creates a ledger row and checks its arithmetic
func NewCreditHistoryEntry(
	tenantID, clientID uuid.UUID,
	entryType CreditEntryType,
	amount, previousBalance, newBalance decimal.Decimal,
	cc CreditContext,
) (*CreditHistoryEntry, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_TYPE", "Invalid credit entry type")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code, "Amount must be positive")
	}
	if newBalance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BALANCE", "Credit balance cannot be negative")
	}

	entry := &CreditHistoryEntry{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		ClientID:        clientID,
		Type:            entryType,
		Amount:          amount,
		PreviousBalance: previousBalance,
		NewBalance:      newBalance,
		InvoiceID:       cc.InvoiceID,
		PaymentID:       cc.PaymentID,
		Reference:       cc.Reference,
		Description:     cc.Description,
		OperatorID:      cc.OperatorID,
	}
	if err := entry.Verify(); err != nil {
		return nil, err
	}
	return entry, nil
}

// SignedAmount returns the amount with the sign of its effect on the balance
func (e *CreditHistoryEntry) SignedAmount() decimal.Decimal {
	if e.Type.IsIncrease() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Verify checks NewBalance == PreviousBalance ± Amount
func (e *CreditHistoryEntry) Verify() error {
	expected := e.PreviousBalance.Add(e.SignedAmount())
	if !expected.Equal(e.NewBalance) {
		return shared.NewLedgerInconsistency(AggregateTypeClient, e.ClientID, expected, e.NewBalance,
			fmt.Sprintf("%s entry %s does not balance", e.Type, e.ID))
	}
	return nil
}

// CreatedOn returns when the entry was written
func (e *CreditHistoryEntry) CreatedOn() time.Time {
	return e.CreatedAt
}
