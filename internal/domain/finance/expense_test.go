package finance

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestExpense(t *testing.T) *Expense {
	t.Helper()
	e, err := NewExpense(uuid.New(), "EXP-001", ExpenseCategoryOffice, d("80.00"), "Printer paper", time.Now())
	require.NoError(t, err)
	return e
}

func TestExpense_Settle(t *testing.T) {
	t.Run("marks expense paid", func(t *testing.T) {
		e := createTestExpense(t)
		sourceID := uuid.New()
		require.NoError(t, e.AssignPaymentSource(sourceID))

		payment, err := e.Settle(SettleInput{
			Amount:        d("80.00"),
			Method:        PaymentMethodBankTransfer,
			Reference:     "TRX-9",
			AttachmentRef: "receipts/exp-001.pdf",
		})
		require.NoError(t, err)
		assert.True(t, e.IsPaid())
		assert.NotNil(t, e.PaidAt)
		assert.Equal(t, sourceID, *payment.PaymentSourceID)
		assert.Equal(t, "receipts/exp-001.pdf", e.AttachmentRef)
		assert.Len(t, e.GetDomainEvents(), 1)
	})

	t.Run("amount must match", func(t *testing.T) {
		e := createTestExpense(t)
		_, err := e.Settle(SettleInput{Amount: d("79.99"), Method: PaymentMethodCash, AttachmentRef: "r.pdf"})
		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
		assert.False(t, e.IsPaid())
	})

	t.Run("attachment is required", func(t *testing.T) {
		e := createTestExpense(t)
		_, err := e.Settle(SettleInput{Amount: d("80.00"), Method: PaymentMethodCash})
		require.Error(t, err)
	})

	t.Run("cannot settle twice", func(t *testing.T) {
		e := createTestExpense(t)
		in := SettleInput{Amount: d("80.00"), Method: PaymentMethodCash, AttachmentRef: "r.pdf"}
		_, err := e.Settle(in)
		require.NoError(t, err)
		_, err = e.Settle(in)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("credit balance is not an expense method", func(t *testing.T) {
		e := createTestExpense(t)
		_, err := e.Settle(SettleInput{Amount: d("80.00"), Method: PaymentMethodCreditBalance, AttachmentRef: "r.pdf"})
		require.Error(t, err)
	})
}

func TestPendingCredit(t *testing.T) {
	inv := createTestInvoice(t, "100.00")
	p, err := NewPayment(inv, d("120.00"), d("100.00"), PaymentMethodCash, time.Now())
	require.NoError(t, err)

	pc, err := NewPendingCredit(p)
	require.NoError(t, err)
	assert.Equal(t, "20.00", pc.Amount.StringFixed(2))
	assert.Equal(t, inv.ClientID, pc.ClientID)

	pc.MarkFailed(assert.AnError)
	assert.Equal(t, PendingCreditStatusFailed, pc.Status)
	assert.Equal(t, 1, pc.Attempts)

	pc.MarkApplied()
	assert.True(t, pc.IsSettled())
	assert.Empty(t, pc.LastError)

	plain, err := NewPayment(inv, d("10.00"), d("10.00"), PaymentMethodCash, time.Now())
	require.NoError(t, err)
	_, err = NewPendingCredit(plain)
	assert.Error(t, err)
}
