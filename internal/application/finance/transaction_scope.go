package finance

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
)

// TransactionScope provides transactional access to ledger repositories.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
//
// Lock order: when one transaction touches several aggregates it locks them
// as invoice, then expense, then client, then payment source.
type TransactionalRepositories interface {
	InvoiceRepo() finance.InvoiceRepository
	PaymentRepo() finance.PaymentRepository
	PendingCreditRepo() finance.PendingCreditRepository
	ExpenseRepo() finance.ExpenseRepository
	ExpensePaymentRepo() finance.ExpensePaymentRepository
	PaymentSourceRepo() finance.PaymentSourceRepository
	PaymentSourceTransactionRepo() finance.PaymentSourceTransactionRepository
	ClientRepo() partner.ClientRepository
	CreditHistoryRepo() partner.CreditHistoryRepository
}

// Repositories is a set of ledger repositories bound to one database handle.
type Repositories struct {
	Invoices                  finance.InvoiceRepository
	Payments                  finance.PaymentRepository
	PendingCredits            finance.PendingCreditRepository
	Expenses                  finance.ExpenseRepository
	ExpensePayments           finance.ExpensePaymentRepository
	PaymentSources            finance.PaymentSourceRepository
	PaymentSourceTransactions finance.PaymentSourceTransactionRepository
	Clients                   partner.ClientRepository
	CreditHistory             partner.CreditHistoryRepository
}

func (r *Repositories) InvoiceRepo() finance.InvoiceRepository { return r.Invoices }
func (r *Repositories) PaymentRepo() finance.PaymentRepository { return r.Payments }
func (r *Repositories) PendingCreditRepo() finance.PendingCreditRepository {
	return r.PendingCredits
}
func (r *Repositories) ExpenseRepo() finance.ExpenseRepository { return r.Expenses }
func (r *Repositories) ExpensePaymentRepo() finance.ExpensePaymentRepository {
	return r.ExpensePayments
}
func (r *Repositories) PaymentSourceRepo() finance.PaymentSourceRepository { return r.PaymentSources }
func (r *Repositories) PaymentSourceTransactionRepo() finance.PaymentSourceTransactionRepository {
	return r.PaymentSourceTransactions
}
func (r *Repositories) ClientRepo() partner.ClientRepository { return r.Clients }
func (r *Repositories) CreditHistoryRepo() partner.CreditHistoryRepository {
	return r.CreditHistory
}

var _ TransactionalRepositories = (*Repositories)(nil)
