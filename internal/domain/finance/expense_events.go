package finance

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense and payment source event types
const (
	EventTypeExpenseSettled              = "ExpenseSettled"
	EventTypePaymentSourceBalanceChanged = "PaymentSourceBalanceChanged"
)

// ExpenseSettledEvent is raised when an expense is paid
type ExpenseSettledEvent struct {
	shared.BaseDomainEvent
	ExpenseID       uuid.UUID       `json:"expense_id"`
	ExpenseNumber   string          `json:"expense_number"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	PaymentSourceID *uuid.UUID      `json:"payment_source_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
}

// NewExpenseSettledEvent creates a new ExpenseSettledEvent
func NewExpenseSettledEvent(e *Expense, p *ExpensePayment) *ExpenseSettledEvent {
	return &ExpenseSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeExpenseSettled, AggregateTypeExpense, &e.TenantAggregateRoot),
		ExpenseID:       e.ID,
		ExpenseNumber:   e.ExpenseNumber,
		PaymentID:       p.ID,
		PaymentSourceID: e.PaymentSourceID,
		Amount:          p.Amount,
		Method:          p.Method,
	}
}

// PaymentSourceBalanceChangedEvent is raised for every payment source ledger row
type PaymentSourceBalanceChangedEvent struct {
	shared.BaseDomainEvent
	PaymentSourceID uuid.UUID                    `json:"payment_source_id"`
	TransactionID   uuid.UUID                    `json:"transaction_id"`
	Type            PaymentSourceTransactionType `json:"type"`
	Amount          decimal.Decimal              `json:"amount"`
	BalanceBefore   decimal.Decimal              `json:"balance_before"`
	BalanceAfter    decimal.Decimal              `json:"balance_after"`
}

// NewPaymentSourceBalanceChangedEvent creates a new PaymentSourceBalanceChangedEvent
func NewPaymentSourceBalanceChangedEvent(s *PaymentSource, tx *PaymentSourceTransaction) *PaymentSourceBalanceChangedEvent {
	return &PaymentSourceBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSourceBalanceChanged, AggregateTypePaymentSource, &s.TenantAggregateRoot),
		PaymentSourceID: s.ID,
		TransactionID:   tx.ID,
		Type:            tx.Type,
		Amount:          tx.Amount,
		BalanceBefore:   tx.BalanceBefore,
		BalanceAfter:    tx.BalanceAfter,
	}
}
