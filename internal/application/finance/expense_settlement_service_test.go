package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAttachmentVerifier is a mock implementation of AttachmentVerifier
type MockAttachmentVerifier struct {
	mock.Mock
}

func (m *MockAttachmentVerifier) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func settleInput(f *ledgerFixture, expenseID uuid.UUID, amount string) SettleExpenseInput {
	return SettleExpenseInput{
		TenantID:      f.tenantID,
		ExpenseID:     expenseID,
		Amount:        d(amount),
		Method:        finance.PaymentMethodBankTransfer,
		Reference:     "PAY-77",
		AttachmentRef: "receipts/2024/paper.pdf",
	}
}

func TestSettleExpense_DebitsAssignedSource(t *testing.T) {
	attachments := new(MockAttachmentVerifier)
	attachments.On("ObjectExists", mock.Anything, "receipts/2024/paper.pdf").Return(true, nil)
	f := newLedgerFixtureWithAttachments(t, attachments)
	src := f.addSource(t, finance.PaymentSourceTypeBank, "300.00")
	exp := f.addExpense(t, "120.00", &src.ID)

	res, err := f.expenses.SettleExpense(context.Background(), settleInput(f, exp.ID, "120.00"))
	require.NoError(t, err)
	assert.Equal(t, finance.ExpenseStatusPaid, res.Expense.Status)
	assert.NotNil(t, res.Expense.PaidAt)
	assert.True(t, res.Payment.Amount.Equal(d("120.00")))
	require.NotNil(t, res.Transaction)
	require.NotNil(t, res.Transaction.ExpenseID)
	assert.Equal(t, exp.ID, *res.Transaction.ExpenseID)
	assert.True(t, res.Transaction.BalanceAfter.Equal(d("180.00")))

	assert.True(t, f.source(t, src.ID).CurrentBalance.Equal(d("180.00")))
	assert.Len(t, f.store.snapshot().expensePayments, 1)
	attachments.AssertExpectations(t)

	_, err = f.expenses.SettleExpense(context.Background(), settleInput(f, exp.ID, "120.00"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.True(t, f.source(t, src.ID).CurrentBalance.Equal(d("180.00")))
}

func TestSettleExpense_WithoutSource(t *testing.T) {
	f := newLedgerFixture(t)
	exp := f.addExpense(t, "45.00", nil)

	res, err := f.expenses.SettleExpense(context.Background(), settleInput(f, exp.ID, "45.00"))
	require.NoError(t, err)
	assert.Nil(t, res.Transaction)
	assert.True(t, res.Expense.IsPaid())
}

func TestSettleExpense_InsufficientFundsRollsBack(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.addSource(t, finance.PaymentSourceTypeCash, "50.00")
	exp := f.addExpense(t, "80.00", &src.ID)

	_, err := f.expenses.SettleExpense(context.Background(), settleInput(f, exp.ID, "80.00"))
	var insufficient *finance.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)

	snap := f.store.snapshot()
	assert.Equal(t, finance.ExpenseStatusPending, snap.expenses[exp.ID].Status)
	assert.Empty(t, snap.expensePayments)
	assert.True(t, snap.sources[src.ID].CurrentBalance.Equal(d("50.00")))
}

func TestSettleExpense_Validation(t *testing.T) {
	attachments := new(MockAttachmentVerifier)
	attachments.On("ObjectExists", mock.Anything, "receipts/2024/paper.pdf").Return(true, nil)
	attachments.On("ObjectExists", mock.Anything, "missing.pdf").Return(false, nil)
	attachments.On("ObjectExists", mock.Anything, "broken.pdf").Return(false, errors.New("s3 unavailable"))
	f := newLedgerFixtureWithAttachments(t, attachments)
	exp := f.addExpense(t, "45.00", nil)
	ctx := context.Background()

	in := settleInput(f, exp.ID, "40.00")
	_, err := f.expenses.SettleExpense(ctx, in)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount, "amount must match the expense")

	in = settleInput(f, exp.ID, "45.00")
	in.AttachmentRef = ""
	_, err = f.expenses.SettleExpense(ctx, in)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ATTACHMENT_REQUIRED", de.Code)

	in.AttachmentRef = "missing.pdf"
	_, err = f.expenses.SettleExpense(ctx, in)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ATTACHMENT_NOT_FOUND", de.Code)

	in.AttachmentRef = "broken.pdf"
	_, err = f.expenses.SettleExpense(ctx, in)
	assert.ErrorContains(t, err, "s3 unavailable")

	in = settleInput(f, uuid.New(), "45.00")
	in.AttachmentRef = ""
	_, err = f.expenses.SettleExpense(ctx, in)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, finance.ExpenseStatusPending, f.store.snapshot().expenses[exp.ID].Status)
}
