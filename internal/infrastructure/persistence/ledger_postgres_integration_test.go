//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupPostgres starts a throwaway postgres container and applies the
// embedded schema to it.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.GreaterOrEqual(t, version, uint(1))

	return db
}

func TestPostgres_ConcurrentPaymentsSerializeOnInvoice(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tenantID := uuid.New()

	cfg := appfinance.LedgerConfig{
		TxScope: NewGormTransactionScope(db, 5*time.Second),
		Retry:   appfinance.RetryPolicy{MaxAttempts: 5, BaseDelay: 5 * time.Millisecond, MaxDelay: 50 * time.Millisecond},
	}
	credits := appfinance.NewCreditLedgerService(cfg)
	reconciler := appfinance.NewPaymentReconciler(cfg, credits)
	verify := appfinance.NewReconciliationService(cfg)
	repos := NewRepositories(db)

	client := newTestClient(t, tenantID)
	require.NoError(t, repos.Clients.Create(ctx, client))
	inv := newTestInvoice(t, tenantID, client.ID, "100.00")
	require.NoError(t, repos.Invoices.Create(ctx, inv))

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reconciler.RecordPayment(ctx, appfinance.RecordPaymentInput{
				TenantID: tenantID, InvoiceID: inv.ID, Amount: dec("10.00"), Method: finance.PaymentMethodBankTransfer,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := repos.Invoices.FindByID(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(dec("100")))
	assert.Equal(t, finance.InvoiceStatusPaid, stored.Status)

	payments, err := repos.Payments.FindByInvoiceID(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, workers)

	check, err := verify.VerifyInvoice(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
}

func TestPostgres_ConcurrentCreditSpendNeverGoesNegative(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tenantID := uuid.New()

	cfg := appfinance.LedgerConfig{
		TxScope: NewGormTransactionScope(db, 5*time.Second),
		Retry:   appfinance.RetryPolicy{MaxAttempts: 5, BaseDelay: 5 * time.Millisecond, MaxDelay: 50 * time.Millisecond},
	}
	credits := appfinance.NewCreditLedgerService(cfg)
	verify := appfinance.NewReconciliationService(cfg)
	repos := NewRepositories(db)

	client := newTestClient(t, tenantID)
	require.NoError(t, repos.Clients.Create(ctx, client))
	_, err := credits.AddCredit(ctx, tenantID, client.ID, dec("50.00"), partner.CreditContext{Description: "Opening credit"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := credits.SpendCredit(ctx, tenantID, client.ID, dec("10.00"), partner.CreditEntryTypeUsed, partner.CreditContext{Description: "Spend"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	stored, err := repos.Clients.FindByID(ctx, tenantID, client.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreditBalance.IsZero())

	check, err := verify.VerifyClientBalance(ctx, tenantID, client.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, 6, check.EntryCount)
}

func TestPostgres_RefundsWithoutOriginalPayment(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tenantID := uuid.New()

	cfg := appfinance.LedgerConfig{TxScope: NewGormTransactionScope(db, 5*time.Second)}
	credits := appfinance.NewCreditLedgerService(cfg)
	reconciler := appfinance.NewPaymentReconciler(cfg, credits)
	refunds := appfinance.NewRefundProcessor(cfg)
	verify := appfinance.NewReconciliationService(cfg)
	repos := NewRepositories(db)

	client := newTestClient(t, tenantID)
	require.NoError(t, repos.Clients.Create(ctx, client))
	inv := newTestInvoice(t, tenantID, client.ID, "100.00")
	require.NoError(t, repos.Invoices.Create(ctx, inv))

	_, err := reconciler.RecordPayment(ctx, appfinance.RecordPaymentInput{
		TenantID: tenantID, InvoiceID: inv.ID, Amount: dec("100.00"), Method: finance.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	refund := func(amount string) (*appfinance.RefundInvoiceResult, error) {
		return refunds.RefundInvoicePayment(ctx, appfinance.RefundInvoiceInput{
			TenantID: tenantID, InvoiceID: inv.ID, RefundAmount: dec(amount), RefundMethod: finance.PaymentMethodBankTransfer,
		})
	}

	first, err := refund("40.00")
	require.NoError(t, err)
	assert.Equal(t, finance.InvoiceStatusPartiallyRefunded, first.NewStatus)

	second, err := refund("60.00")
	require.NoError(t, err)
	assert.True(t, second.NewPaidAmount.IsZero())
	assert.Equal(t, finance.InvoiceStatusRefunded, second.NewStatus)

	_, err = refund("1.00")
	var exceeds *finance.RefundExceedsPaidError
	require.ErrorAs(t, err, &exceeds)

	// Paying again after a full refund reopens the invoice
	repaid, err := reconciler.RecordPayment(ctx, appfinance.RecordPaymentInput{
		TenantID: tenantID, InvoiceID: inv.ID, Amount: dec("100.00"), Method: finance.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, finance.InvoiceStatusPaid, repaid.NewStatus)

	check, err := verify.VerifyInvoice(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
}

func TestPostgres_SchemaRejectsOverpaidInvoiceRow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tenantID := uuid.New()
	repos := NewRepositories(db)

	client := newTestClient(t, tenantID)
	require.NoError(t, repos.Clients.Create(ctx, client))
	inv := newTestInvoice(t, tenantID, client.ID, "100.00")
	require.NoError(t, repos.Invoices.Create(ctx, inv))

	err := db.Exec("UPDATE invoices SET paid_amount = 150 WHERE id = ?", inv.ID).Error
	assert.Error(t, err)

	err = db.Exec("UPDATE clients SET credit_balance = -1 WHERE id = ?", client.ID).Error
	assert.Error(t, err)
}
