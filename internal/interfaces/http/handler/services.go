package handler

import (
	"context"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentRecorder records and lists invoice payments
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, in appfinance.RecordPaymentInput) (*appfinance.RecordPaymentResult, error)
	ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*finance.Payment, error)
}

// CreditReplayer retries overpayments that did not reach the credit ledger
type CreditReplayer interface {
	ReplayPendingCredits(ctx context.Context, limit int) (*appfinance.ReplayResult, error)
}

// InvoiceRefunder refunds invoice payments
type InvoiceRefunder interface {
	RefundInvoicePayment(ctx context.Context, in appfinance.RefundInvoiceInput) (*appfinance.RefundInvoiceResult, error)
}

// LedgerVerifier recomputes cached balances from history
type LedgerVerifier interface {
	VerifyClientBalance(ctx context.Context, tenantID, clientID uuid.UUID) (*appfinance.BalanceVerification, error)
	VerifyPaymentSourceBalance(ctx context.Context, tenantID, sourceID uuid.UUID) (*appfinance.BalanceVerification, error)
	VerifyInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appfinance.BalanceVerification, error)
}

// ClientCreditLedger reads and refunds client credit
type ClientCreditLedger interface {
	GetClientCredit(ctx context.Context, tenantID, clientID uuid.UUID, filter shared.Filter) (*appfinance.ClientCreditResult, error)
	RefundClientCredit(ctx context.Context, in appfinance.RefundCreditInput) (*appfinance.RefundCreditResult, error)
}

// CreditApplier pays invoices out of client credit
type CreditApplier interface {
	ApplyCreditToInvoice(ctx context.Context, in appfinance.ApplyCreditInput) (*appfinance.ApplyCreditResult, error)
}

// ExpenseSettler settles expenses
type ExpenseSettler interface {
	SettleExpense(ctx context.Context, in appfinance.SettleExpenseInput) (*appfinance.SettleExpenseResult, error)
}

// ReceiptUploader issues presigned upload URLs for expense receipts
type ReceiptUploader interface {
	GenerateUploadURL(ctx context.Context, key, contentType string) (string, time.Time, error)
}

// PaymentSourceLedger reads and adjusts payment sources
type PaymentSourceLedger interface {
	GetPaymentSource(ctx context.Context, tenantID, sourceID uuid.UUID) (*finance.PaymentSource, error)
	ListTransactions(ctx context.Context, tenantID, sourceID uuid.UUID, filter shared.Filter) (shared.Paginated[*finance.PaymentSourceTransaction], error)
	AdjustBalance(ctx context.Context, in appfinance.AdjustBalanceInput) (*appfinance.AdjustBalanceResult, error)
}

var (
	_ PaymentRecorder     = (*appfinance.PaymentReconciler)(nil)
	_ CreditReplayer      = (*appfinance.PaymentReconciler)(nil)
	_ InvoiceRefunder     = (*appfinance.RefundProcessor)(nil)
	_ LedgerVerifier      = (*appfinance.ReconciliationService)(nil)
	_ ClientCreditLedger  = (*appfinance.CreditLedgerService)(nil)
	_ CreditApplier       = (*appfinance.CreditApplicationService)(nil)
	_ ExpenseSettler      = (*appfinance.ExpenseSettlementService)(nil)
	_ PaymentSourceLedger = (*appfinance.PaymentSourceLedgerService)(nil)
)
