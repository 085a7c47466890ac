package finance

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePaymentSource names the payment source aggregate
const AggregateTypePaymentSource = "PaymentSource"

// PaymentSourceType represents the kind of account funding expenses
type PaymentSourceType string

const (
	PaymentSourceTypeCash       PaymentSourceType = "cash"
	PaymentSourceTypeBank       PaymentSourceType = "bank"
	PaymentSourceTypeCreditCard PaymentSourceType = "credit_card"
)

// IsValid checks if the source type is valid
func (t PaymentSourceType) IsValid() bool {
	switch t {
	case PaymentSourceTypeCash, PaymentSourceTypeBank, PaymentSourceTypeCreditCard:
		return true
	}
	return false
}

// AllowsNegativeBalance returns true for credit-type sources
func (t PaymentSourceType) AllowsNegativeBalance() bool {
	return t == PaymentSourceTypeCreditCard
}

// PaymentSource is a cash, bank or card account whose running balance is a
// cache over its PaymentSourceTransaction history.
type PaymentSource struct {
	shared.TenantAggregateRoot
	Name           string
	Type           PaymentSourceType
	CurrentBalance decimal.Decimal
	IsActive       bool

	// sequence of the newest transaction, set by CheckLatest
	headSequence int64
}

// NewPaymentSource creates an active payment source with a zero balance.
// An opening balance is recorded through Adjust so that history explains it.
func NewPaymentSource(tenantID uuid.UUID, name string, sourceType PaymentSourceType) (*PaymentSource, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Payment source name cannot be empty")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Payment source type is not valid")
	}
	return &PaymentSource{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Type:                sourceType,
		CurrentBalance:      decimal.Zero,
		IsActive:            true,
	}, nil
}

// Debit takes money out of the source to pay an expense.
func (s *PaymentSource) Debit(amount decimal.Decimal, expenseID uuid.UUID, reference string) (*PaymentSourceTransaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	tx, err := s.apply(PaymentSourceTransactionTypeExpense, amount.Neg(), "Expense payment", reference)
	if err != nil {
		return nil, err
	}
	tx.ExpenseID = &expenseID
	return tx, nil
}

// Credit puts money into the source.
func (s *PaymentSource) Credit(amount decimal.Decimal, description, reference string) (*PaymentSourceTransaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	return s.apply(PaymentSourceTransactionTypeIncome, amount, description, reference)
}

// Adjust applies a signed manual correction. txType defaults to adjustment.
func (s *PaymentSource) Adjust(signedAmount decimal.Decimal, description string, txType PaymentSourceTransactionType) (*PaymentSourceTransaction, error) {
	if signedAmount.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code, "Adjustment amount cannot be zero")
	}
	if err := ValidateAmount(signedAmount.Abs()); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Adjustment description is required")
	}
	if txType == "" {
		txType = PaymentSourceTransactionTypeAdjustment
	}
	if !txType.AcceptsSign(signedAmount) {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code,
			fmt.Sprintf("Amount %s has the wrong sign for a %s transaction", signedAmount.StringFixed(2), txType))
	}
	return s.apply(txType, signedAmount, description, "")
}

func (s *PaymentSource) apply(txType PaymentSourceTransactionType, signedAmount decimal.Decimal, description, reference string) (*PaymentSourceTransaction, error) {
	if !s.IsActive {
		return nil, shared.NewDomainError("INVALID_STATE", "Payment source is inactive")
	}
	before := s.CurrentBalance
	after := RoundMoney(before.Add(signedAmount))
	if after.IsNegative() && !s.Type.AllowsNegativeBalance() {
		return nil, &InsufficientFundsError{SourceID: s.ID, Requested: signedAmount.Abs(), Available: before}
	}

	tx, err := NewPaymentSourceTransaction(s, txType, signedAmount, before, after)
	if err != nil {
		return nil, err
	}
	tx.Description = description
	tx.Reference = reference

	s.CurrentBalance = after
	s.IncrementVersion()
	s.headSequence++
	tx.Sequence = s.headSequence
	s.AddDomainEvent(NewPaymentSourceBalanceChangedEvent(s, tx))
	return tx, nil
}

// VerifyHistory replays txs (oldest first) from a zero balance and checks
// each row and the final balance against the cached CurrentBalance.
func (s *PaymentSource) VerifyHistory(txs []*PaymentSourceTransaction) (decimal.Decimal, error) {
	running := decimal.Zero
	for _, tx := range txs {
		if !tx.BalanceBefore.Equal(running) {
			return running, shared.NewLedgerInconsistency(AggregateTypePaymentSource, s.ID, running, tx.BalanceBefore,
				fmt.Sprintf("transaction %s does not continue the previous balance", tx.ID))
		}
		if err := tx.Verify(); err != nil {
			return running, err
		}
		running = tx.BalanceAfter
	}
	if !running.Equal(s.CurrentBalance) {
		return running, shared.NewLedgerInconsistency(AggregateTypePaymentSource, s.ID, running, s.CurrentBalance,
			"current balance differs from transaction history")
	}
	return running, nil
}

// CheckLatest compares the cached balance with the newest transaction.
func (s *PaymentSource) CheckLatest(latest *PaymentSourceTransaction) error {
	expected := decimal.Zero
	var head int64
	if latest != nil {
		expected, head = latest.BalanceAfter, latest.Sequence
	}
	if !expected.Equal(s.CurrentBalance) {
		return shared.NewLedgerInconsistency(AggregateTypePaymentSource, s.ID, expected, s.CurrentBalance,
			"current balance differs from latest transaction")
	}
	s.headSequence = head
	return nil
}
