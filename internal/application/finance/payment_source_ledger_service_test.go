package finance

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSourceLedger_DebitCreditAdjust(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.addSource(t, finance.PaymentSourceTypeBank, "500.00")
	ctx := context.Background()

	tx, err := f.sources.Debit(ctx, f.tenantID, src.ID, d("120.00"), uuid.New(), "EXP-1")
	require.NoError(t, err)
	assert.True(t, tx.BalanceBefore.Equal(d("500.00")))
	assert.True(t, tx.BalanceAfter.Equal(d("380.00")))
	assert.Equal(t, finance.PaymentSourceTransactionTypeExpense, tx.Type)

	tx, err = f.sources.Credit(ctx, f.tenantID, src.ID, d("20.00"), "interest", "INT-1")
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(d("400.00")))

	res, err := f.sources.AdjustBalance(ctx, AdjustBalanceInput{
		TenantID:    f.tenantID,
		SourceID:    src.ID,
		Amount:      d("-0.50"),
		Description: "bank fee",
	})
	require.NoError(t, err)
	assert.True(t, res.Source.CurrentBalance.Equal(d("399.50")))
	assert.Equal(t, finance.PaymentSourceTransactionTypeAdjustment, res.Transaction.Type)

	assert.True(t, f.source(t, src.ID).CurrentBalance.Equal(d("399.50")))
	v, err := f.verifier.VerifyPaymentSourceBalance(ctx, f.tenantID, src.ID)
	require.NoError(t, err)
	assert.True(t, v.Consistent)
	assert.Equal(t, 4, v.EntryCount)
}

func TestPaymentSourceLedger_InsufficientFunds(t *testing.T) {
	f := newLedgerFixture(t)
	cash := f.addSource(t, finance.PaymentSourceTypeCash, "10.00")
	card := f.addSource(t, finance.PaymentSourceTypeCreditCard, "0")
	ctx := context.Background()

	_, err := f.sources.Debit(ctx, f.tenantID, cash.ID, d("10.01"), uuid.New(), "")
	var insufficient *finance.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(d("10.00")))
	assert.True(t, f.source(t, cash.ID).CurrentBalance.Equal(d("10.00")))

	tx, err := f.sources.Debit(ctx, f.tenantID, card.ID, d("75.00"), uuid.New(), "")
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(d("-75.00")))
}

func TestPaymentSourceLedger_AdjustValidation(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.addSource(t, finance.PaymentSourceTypeBank, "0")
	ctx := context.Background()

	_, err := f.sources.AdjustBalance(ctx, AdjustBalanceInput{TenantID: f.tenantID, SourceID: src.ID, Amount: d("0"), Description: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = f.sources.AdjustBalance(ctx, AdjustBalanceInput{TenantID: f.tenantID, SourceID: src.ID, Amount: d("1.001"), Description: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = f.sources.AdjustBalance(ctx, AdjustBalanceInput{
		TenantID: f.tenantID, SourceID: src.ID, Amount: d("5.00"), Description: "x", Type: finance.PaymentSourceTransactionTypeExpense,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = f.sources.AdjustBalance(ctx, AdjustBalanceInput{TenantID: f.tenantID, SourceID: uuid.New(), Amount: d("5.00"), Description: "x"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentSourceLedger_ListTransactions(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.addSource(t, finance.PaymentSourceTypeBank, "100.00")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.sources.Debit(ctx, f.tenantID, src.ID, d("10.00"), uuid.New(), "")
		require.NoError(t, err)
	}

	page, err := f.sources.ListTransactions(ctx, f.tenantID, src.ID, shared.Filter{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	require.Len(t, page.Items, 3)
	assert.True(t, page.Items[0].BalanceAfter.Equal(d("70.00")))

	got, err := f.sources.GetPaymentSource(ctx, f.tenantID, src.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(d("70.00")))
}
