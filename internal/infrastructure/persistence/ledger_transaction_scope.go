package persistence

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"gorm.io/gorm"
)

// GormTransactionScope implements the ledger TransactionScope with GORM
// transactions. Row locks taken inside fn are held until commit.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope. On PostgreSQL a
// positive lockTimeout bounds how long a transaction waits for a row lock;
// an expired wait surfaces as a retryable transient failure.
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(NewRepositories(tx))
	})
	return translateError(err)
}

// NewRepositories binds every ledger repository to db. Passing a transaction
// handle scopes them all to that transaction.
func NewRepositories(db *gorm.DB) *appfinance.Repositories {
	return &appfinance.Repositories{
		Invoices:                  NewGormInvoiceRepository(db),
		Payments:                  NewGormPaymentRepository(db),
		PendingCredits:            NewGormPendingCreditRepository(db),
		Expenses:                  NewGormExpenseRepository(db),
		ExpensePayments:           NewGormExpensePaymentRepository(db),
		PaymentSources:            NewGormPaymentSourceRepository(db),
		PaymentSourceTransactions: NewGormPaymentSourceTransactionRepository(db),
		Clients:                   NewGormClientRepository(db),
		CreditHistory:             NewGormCreditHistoryRepository(db),
	}
}

var _ appfinance.TransactionScope = (*GormTransactionScope)(nil)
