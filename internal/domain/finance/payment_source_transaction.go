package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentSourceTransactionType classifies a payment source ledger row
type PaymentSourceTransactionType string

const (
	PaymentSourceTransactionTypeExpense    PaymentSourceTransactionType = "expense"
	PaymentSourceTransactionTypeIncome     PaymentSourceTransactionType = "income"
	PaymentSourceTransactionTypeAdjustment PaymentSourceTransactionType = "adjustment"
)

// IsValid checks if the transaction type is valid
func (t PaymentSourceTransactionType) IsValid() bool {
	switch t {
	case PaymentSourceTransactionTypeExpense, PaymentSourceTransactionTypeIncome, PaymentSourceTransactionTypeAdjustment:
		return true
	}
	return false
}

// AcceptsSign reports whether a signed amount fits the type:
// expenses decrease, income increases, adjustments go either way.
func (t PaymentSourceTransactionType) AcceptsSign(amount decimal.Decimal) bool {
	switch t {
	case PaymentSourceTransactionTypeExpense:
		return amount.IsNegative()
	case PaymentSourceTransactionTypeIncome:
		return amount.IsPositive()
	case PaymentSourceTransactionTypeAdjustment:
		return !amount.IsZero()
	}
	return false
}

// PaymentSourceTransaction is an append-only row of a payment source ledger
type PaymentSourceTransaction struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	PaymentSourceID uuid.UUID
	Type            PaymentSourceTransactionType
	Amount          decimal.Decimal // signed
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	ExpenseID       *uuid.UUID
	Description     string
	Reference       string
	CreatedBy       *uuid.UUID
	TransactionDate time.Time
	// Sequence orders transactions of one source without gaps, starting at 1.
	Sequence int64
}

// NewPaymentSourceTransaction creates a ledger row and checks its arithmetic
func NewPaymentSourceTransaction(
	source *PaymentSource,
	txType PaymentSourceTransactionType,
	signedAmount, balanceBefore, balanceAfter decimal.Decimal,
) (*PaymentSourceTransaction, error) {
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Transaction type is not valid")
	}
	tx := &PaymentSourceTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        source.TenantID,
		PaymentSourceID: source.ID,
		Type:            txType,
		Amount:          RoundMoney(signedAmount),
		BalanceBefore:   RoundMoney(balanceBefore),
		BalanceAfter:    RoundMoney(balanceAfter),
		TransactionDate: time.Now(),
	}
	if err := tx.Verify(); err != nil {
		return nil, err
	}
	return tx, nil
}

// WithCreatedBy sets the operator that caused the transaction
func (t *PaymentSourceTransaction) WithCreatedBy(userID uuid.UUID) *PaymentSourceTransaction {
	t.CreatedBy = &userID
	return t
}

// Verify checks BalanceAfter == BalanceBefore + Amount and the sign rule
func (t *PaymentSourceTransaction) Verify() error {
	if !t.Type.AcceptsSign(t.Amount) {
		return shared.NewLedgerInconsistency(AggregateTypePaymentSource, t.PaymentSourceID, t.Amount, t.Amount,
			"transaction amount sign does not match its type")
	}
	expected := t.BalanceBefore.Add(t.Amount)
	if !expected.Equal(t.BalanceAfter) {
		return shared.NewLedgerInconsistency(AggregateTypePaymentSource, t.PaymentSourceID, expected, t.BalanceAfter,
			"balance after does not equal balance before plus amount")
	}
	return nil
}
