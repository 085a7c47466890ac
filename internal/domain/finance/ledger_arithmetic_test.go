package finance

import (
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeRemaining(t *testing.T) {
	assert.True(t, d("40.00").Equal(ComputeRemaining(d("100.00"), d("60.00"))))
	assert.True(t, ComputeRemaining(d("100.00"), d("100.00")).IsZero())
}

func TestSplitPayment(t *testing.T) {
	tests := []struct {
		name        string
		payment     string
		remaining   string
		applied     string
		overpayment string
	}{
		{"under remaining", "60.00", "100.00", "60.00", "0"},
		{"exactly remaining", "40.00", "40.00", "40.00", "0"},
		{"over remaining", "50.00", "40.00", "40.00", "10.00"},
		{"nothing remaining", "25.00", "0", "0", "25.00"},
		{"negative remaining treated as zero", "5.00", "-1.00", "0", "5.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, over := SplitPayment(d(tt.payment), d(tt.remaining))
			assert.True(t, d(tt.applied).Equal(applied), "applied %s", applied)
			assert.True(t, d(tt.overpayment).Equal(over), "overpayment %s", over)
			assert.True(t, applied.Add(over).Equal(d(tt.payment)))
		})
	}
}

func TestNextInvoiceStatus(t *testing.T) {
	amount := d("100.00")
	assert.Equal(t, InvoiceStatusPaid, NextInvoiceStatus(d("100.00"), amount, InvoiceStatusSent))
	assert.Equal(t, InvoiceStatusPartiallyPaid, NextInvoiceStatus(d("0.01"), amount, InvoiceStatusSent))
	assert.Equal(t, InvoiceStatusSent, NextInvoiceStatus(decimal.Zero, amount, InvoiceStatusSent))
	assert.Equal(t, InvoiceStatusCancelled, NextInvoiceStatus(d("100.00"), amount, InvoiceStatusCancelled))
}

func TestRefundStatus(t *testing.T) {
	amount := d("100.00")
	assert.Equal(t, InvoiceStatusRefunded, RefundStatus(decimal.Zero, amount, InvoiceStatusPaid))
	assert.Equal(t, InvoiceStatusPartiallyRefunded, RefundStatus(d("60.00"), amount, InvoiceStatusPaid))
	assert.Equal(t, InvoiceStatusPaid, RefundStatus(d("100.00"), amount, InvoiceStatusPaid))
}

func TestValidateAmount(t *testing.T) {
	require.NoError(t, ValidateAmount(d("0.01")))
	require.NoError(t, ValidateAmount(d("12.5")))

	for _, bad := range []string{"0", "-1.00", "1.005"} {
		err := ValidateAmount(d(bad))
		require.Error(t, err, bad)
		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "10.01", RoundMoney(d("10.005")).StringFixed(2))
	assert.Equal(t, "-10.01", RoundMoney(d("-10.005")).StringFixed(2))
}

func TestSumAppliedAndReceived(t *testing.T) {
	payments := []*Payment{
		{Amount: d("60.00"), AppliedAmount: d("60.00")},
		{Amount: d("50.00"), AppliedAmount: d("40.00"), IsOverpayment: true},
		{Amount: d("-30.00"), AppliedAmount: d("-30.00"), IsRefund: true},
	}
	assert.True(t, d("70.00").Equal(SumApplied(payments)))
	assert.True(t, d("110.00").Equal(SumReceived(payments)))
}
