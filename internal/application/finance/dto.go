package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Invoice payments
// =============================================================================

// RecordPaymentInput carries a payment received for an invoice
type RecordPaymentInput struct {
	TenantID      uuid.UUID
	InvoiceID     uuid.UUID
	Amount        decimal.Decimal
	PaymentDate   time.Time
	Method        finance.PaymentMethod
	BankReference string
	Notes         string
	AdminApproved bool
	RecordedBy    *uuid.UUID
}

// RecordPaymentResult is the outcome of RecordPayment.
// CreditPending is true when an overpayment was recorded but its credit is
// waiting for replay; NewCreditBalance is then nil.
type RecordPaymentResult struct {
	Payment          *finance.Payment
	Invoice          *finance.Invoice
	NewPaidAmount    decimal.Decimal
	NewStatus        finance.InvoiceStatus
	CreditAdded      decimal.Decimal
	CreditPending    bool
	NewCreditBalance *decimal.Decimal
}

// ReplayResult counts pending credits handled by one replay run
type ReplayResult struct {
	Applied int
	Failed  int
}

// RefundInvoiceInput carries a refund against an invoice
type RefundInvoiceInput struct {
	TenantID          uuid.UUID
	InvoiceID         uuid.UUID
	RefundAmount      decimal.Decimal
	RefundMethod      finance.PaymentMethod
	RefundReference   string
	Notes             string
	OriginalPaymentID *uuid.UUID
	RecordedBy        *uuid.UUID
}

// RefundInvoiceResult is the outcome of RefundInvoicePayment
type RefundInvoiceResult struct {
	RefundPayment *finance.Payment
	Invoice       *finance.Invoice
	NewPaidAmount decimal.Decimal
	NewStatus     finance.InvoiceStatus
}

// =============================================================================
// Client credit
// =============================================================================

// ApplyCreditInput asks to pay an invoice out of client credit
type ApplyCreditInput struct {
	TenantID        uuid.UUID
	InvoiceID       uuid.UUID
	ClientID        uuid.UUID
	RequestedAmount decimal.Decimal
	AppliedBy       *uuid.UUID
}

// ApplyCreditResult is the outcome of ApplyCreditToInvoice
type ApplyCreditResult struct {
	Payment         *finance.Payment
	Invoice         *finance.Invoice
	CreditUsed      decimal.Decimal
	RemainingCredit decimal.Decimal
	NewPaidAmount   decimal.Decimal
	NewStatus       finance.InvoiceStatus
}

// RefundCreditInput asks to pay client credit back outside the system
type RefundCreditInput struct {
	TenantID   uuid.UUID
	ClientID   uuid.UUID
	Amount     decimal.Decimal
	Method     finance.PaymentMethod
	Reference  string
	OperatorID *uuid.UUID
}

// RefundCreditResult is the outcome of RefundClientCredit
type RefundCreditResult struct {
	Client           *partner.Client
	Entry            *partner.CreditHistoryEntry
	NewCreditBalance decimal.Decimal
}

// ClientCreditResult is a client's balance with a page of its history
type ClientCreditResult struct {
	Client  *partner.Client
	History shared.Paginated[*partner.CreditHistoryEntry]
}

// =============================================================================
// Expenses and payment sources
// =============================================================================

// SettleExpenseInput carries an expense settlement
type SettleExpenseInput struct {
	TenantID      uuid.UUID
	ExpenseID     uuid.UUID
	Amount        decimal.Decimal
	Method        finance.PaymentMethod
	Reference     string
	AttachmentRef string
	Notes         string
	SettledBy     *uuid.UUID
}

// SettleExpenseResult is the outcome of SettleExpense. Transaction is nil
// when the expense has no payment source.
type SettleExpenseResult struct {
	Expense     *finance.Expense
	Payment     *finance.ExpensePayment
	Transaction *finance.PaymentSourceTransaction
}

// AdjustBalanceInput carries a signed correction of a payment source balance
type AdjustBalanceInput struct {
	TenantID    uuid.UUID
	SourceID    uuid.UUID
	Amount      decimal.Decimal
	Type        finance.PaymentSourceTransactionType
	Description string
	OperatorID  *uuid.UUID
}

// AdjustBalanceResult is the outcome of AdjustBalance
type AdjustBalanceResult struct {
	Source      *finance.PaymentSource
	Transaction *finance.PaymentSourceTransaction
}

// =============================================================================
// Verification
// =============================================================================

// BalanceVerification compares a cached balance with its replayed history
type BalanceVerification struct {
	EntityType        string
	EntityID          uuid.UUID
	StoredBalance     decimal.Decimal
	RecomputedBalance decimal.Decimal
	EntryCount        int
	Consistent        bool
	Inconsistency     *shared.LedgerInconsistencyError
}
