package finance

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate loads the invoice and holds a row lock on it until
	// the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// Create inserts a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates the invoice only if its stored version is the one
	// it was loaded with. Returns shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository stores the append-only invoice payment history
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	// FindByInvoiceID returns every payment and refund of an invoice, oldest first
	FindByInvoiceID(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*Payment, error)
}

// PendingCreditRepository stores overpayments waiting for the credit ledger
type PendingCreditRepository interface {
	Create(ctx context.Context, credit *PendingCredit) error
	Update(ctx context.Context, credit *PendingCredit) error
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*PendingCredit, error)
	// FindUnsettled returns pending and failed rows, oldest first
	FindUnsettled(ctx context.Context, limit int) ([]*PendingCredit, error)
}

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Expense, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Expense, error)
	Create(ctx context.Context, expense *Expense) error
	SaveWithLock(ctx context.Context, expense *Expense) error
}

// ExpensePaymentRepository stores expense settlement records
type ExpensePaymentRepository interface {
	Create(ctx context.Context, payment *ExpensePayment) error
	FindByExpenseID(ctx context.Context, tenantID, expenseID uuid.UUID) ([]*ExpensePayment, error)
}

// PaymentSourceRepository defines the interface for payment source persistence
type PaymentSourceRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PaymentSource, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PaymentSource, error)
	Create(ctx context.Context, source *PaymentSource) error
	SaveWithLock(ctx context.Context, source *PaymentSource) error
}

// PaymentSourceTransactionRepository stores the append-only payment source ledger
type PaymentSourceTransactionRepository interface {
	Create(ctx context.Context, tx *PaymentSourceTransaction) error
	// FindBySourceID returns a page of transactions, newest first
	FindBySourceID(ctx context.Context, tenantID, sourceID uuid.UUID, filter shared.Filter) ([]*PaymentSourceTransaction, int64, error)
	// FindAllBySourceID returns the full history, oldest first
	FindAllBySourceID(ctx context.Context, tenantID, sourceID uuid.UUID) ([]*PaymentSourceTransaction, error)
	// GetLatestBySourceID returns the newest transaction, or nil when there is none
	GetLatestBySourceID(ctx context.Context, tenantID, sourceID uuid.UUID) (*PaymentSourceTransaction, error)
}
