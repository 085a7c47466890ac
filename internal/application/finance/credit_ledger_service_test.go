package finance

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditLedger_AddSpendRefund(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "0")
	ctx := context.Background()

	balance, err := f.credits.AddCredit(ctx, f.tenantID, client.ID, d("50.00"), partner.CreditContext{Reference: "promo"})
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("50.00")))

	balance, err = f.credits.SpendCredit(ctx, f.tenantID, client.ID, d("12.25"), partner.CreditEntryTypeApplied, partner.CreditContext{})
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("37.75")))

	res, err := f.credits.RefundClientCredit(ctx, RefundCreditInput{
		TenantID:  f.tenantID,
		ClientID:  client.ID,
		Amount:    d("7.75"),
		Method:    finance.PaymentMethodBankTransfer,
		Reference: "RF-9",
	})
	require.NoError(t, err)
	assert.True(t, res.NewCreditBalance.Equal(d("30.00")))
	assert.Equal(t, partner.CreditEntryTypeRefunded, res.Entry.Type)
	assert.Equal(t, "RF-9", res.Entry.Reference)

	entries := f.creditEntries(client.ID)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Sequence)
		assert.NoError(t, e.Verify())
	}
	f.requireConsistent(t, nil, []uuid.UUID{client.ID})
}

func TestCreditLedger_SpendBeyondBalance(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "5.00")
	ctx := context.Background()

	_, err := f.credits.SpendCredit(ctx, f.tenantID, client.ID, d("5.01"), partner.CreditEntryTypeUsed, partner.CreditContext{})
	var insufficient *partner.InsufficientCreditError
	require.ErrorAs(t, err, &insufficient)

	_, err = f.credits.RefundClientCredit(ctx, RefundCreditInput{
		TenantID: f.tenantID, ClientID: client.ID, Amount: d("6.00"), Method: finance.PaymentMethodCash,
	})
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(d("5.00")))

	assert.True(t, f.client(t, client.ID).CreditBalance.Equal(d("5.00")))
	assert.Len(t, f.creditEntries(client.ID), 1)
}

func TestCreditLedger_BalanceAndHistoryCommitTogether(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "20.00")
	f.store.failNext("Client.Save", shared.ErrInvalidInput)

	_, err := f.credits.AddCredit(context.Background(), f.tenantID, client.ID, d("5.00"), partner.CreditContext{})
	require.Error(t, err)
	assert.True(t, f.client(t, client.ID).CreditBalance.Equal(d("20.00")))
	assert.Len(t, f.creditEntries(client.ID), 1)
}

func TestCreditLedger_RetriesConcurrencyConflict(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "20.00")
	f.store.failNext("Client.Save", shared.ErrConcurrencyConflict)

	balance, err := f.credits.AddCredit(context.Background(), f.tenantID, client.ID, d("5.00"), partner.CreditContext{})
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("25.00")))
	assert.Len(t, f.creditEntries(client.ID), 2)
}

func TestCreditLedger_DriftedBalanceIsInconsistency(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "20.00")
	f.store.seed(func(st *memoryState) {
		row := st.clients[client.ID]
		row.CreditBalance = d("99.00")
		st.clients[client.ID] = row
	})

	_, err := f.credits.AddCredit(context.Background(), f.tenantID, client.ID, d("1.00"), partner.CreditContext{})
	var inc *shared.LedgerInconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.True(t, inc.Expected.Equal(d("20.00")))
	assert.True(t, inc.Actual.Equal(d("99.00")))
	assert.Len(t, f.creditEntries(client.ID), 1)
}

func TestCreditLedger_RefundRequiresExternalMethod(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "20.00")

	_, err := f.credits.RefundClientCredit(context.Background(), RefundCreditInput{
		TenantID: f.tenantID, ClientID: client.ID, Amount: d("1.00"), Method: finance.PaymentMethodCreditBalance,
	})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_PAYMENT_METHOD", de.Code)
}

func TestGetClientCredit(t *testing.T) {
	f := newLedgerFixture(t)
	client := f.addClient(t, "10.00")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := f.credits.AddCredit(ctx, f.tenantID, client.ID, d("1.00"), partner.CreditContext{})
		require.NoError(t, err)
	}

	res, err := f.credits.GetClientCredit(ctx, f.tenantID, client.ID, shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.True(t, res.Client.CreditBalance.Equal(d("14.00")))
	assert.Equal(t, int64(5), res.History.Total)
	assert.Equal(t, 3, res.History.TotalPages)
	require.Len(t, res.History.Items, 2)
	assert.True(t, res.History.Items[0].NewBalance.Equal(d("14.00")), "newest first")

	_, err = f.credits.GetClientCredit(ctx, f.tenantID, uuid.New(), shared.DefaultFilter())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
