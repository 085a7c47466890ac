package finance

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeExpense names the expense aggregate
const AggregateTypeExpense = "Expense"

// ExpenseCategory represents the category of an expense
type ExpenseCategory string

const (
	ExpenseCategoryRent      ExpenseCategory = "rent"
	ExpenseCategoryUtilities ExpenseCategory = "utilities"
	ExpenseCategorySalary    ExpenseCategory = "salary"
	ExpenseCategoryOffice    ExpenseCategory = "office"
	ExpenseCategoryTravel    ExpenseCategory = "travel"
	ExpenseCategoryMarketing ExpenseCategory = "marketing"
	ExpenseCategoryOther     ExpenseCategory = "other"
)

// IsValid checks if the category is a valid ExpenseCategory
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case ExpenseCategoryRent, ExpenseCategoryUtilities, ExpenseCategorySalary,
		ExpenseCategoryOffice, ExpenseCategoryTravel, ExpenseCategoryMarketing,
		ExpenseCategoryOther:
		return true
	}
	return false
}

// ExpenseStatus represents the payment lifecycle of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending   ExpenseStatus = "pending"
	ExpenseStatusPaid      ExpenseStatus = "paid"
	ExpenseStatusCancelled ExpenseStatus = "cancelled"
)

// CanSettle returns true if the expense can be paid
func (s ExpenseStatus) CanSettle() bool {
	return s == ExpenseStatusPending
}

// Expense is a business cost that is settled from a payment source
type Expense struct {
	shared.TenantAggregateRoot
	ExpenseNumber    string
	Category         ExpenseCategory
	Amount           decimal.Decimal
	Description      string
	IncurredAt       time.Time
	PaymentSourceID  *uuid.UUID
	Status           ExpenseStatus
	PaidAt           *time.Time
	PaymentMethod    *PaymentMethod
	PaymentReference string
	AttachmentRef    string
	Notes            string
}

// NewExpense creates a pending expense
func NewExpense(
	tenantID uuid.UUID,
	expenseNumber string,
	category ExpenseCategory,
	amount decimal.Decimal,
	description string,
	incurredAt time.Time,
) (*Expense, error) {
	if expenseNumber == "" {
		return nil, shared.NewDomainError("INVALID_EXPENSE_NUMBER", "Expense number cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Expense category is not valid")
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot be empty")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}

	return &Expense{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ExpenseNumber:       expenseNumber,
		Category:            category,
		Amount:              RoundMoney(amount),
		Description:         description,
		IncurredAt:          incurredAt,
		Status:              ExpenseStatusPending,
	}, nil
}

// AssignPaymentSource sets the account that will fund the expense
func (e *Expense) AssignPaymentSource(sourceID uuid.UUID) error {
	if !e.Status.CanSettle() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change payment source of expense in %s status", e.Status))
	}
	e.PaymentSourceID = &sourceID
	e.Touch()
	return nil
}

// SettleInput carries what the payer recorded when settling an expense
type SettleInput struct {
	Amount        decimal.Decimal
	Method        PaymentMethod
	Reference     string
	AttachmentRef string
	Notes         string
}

// Settle marks the expense paid and returns the settlement record.
func (e *Expense) Settle(in SettleInput) (*ExpensePayment, error) {
	if !e.Status.CanSettle() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot settle expense in %s status", e.Status))
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Amount.Equal(e.Amount) {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code,
			fmt.Sprintf("Settlement amount %s does not match expense amount %s", in.Amount.StringFixed(2), e.Amount.StringFixed(2)))
	}
	if !in.Method.IsExternal() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Expenses must be paid with an external payment method")
	}
	if in.AttachmentRef == "" {
		return nil, shared.NewDomainError("ATTACHMENT_REQUIRED", "A receipt attachment is required to settle an expense")
	}

	now := time.Now()
	method := in.Method
	e.Status = ExpenseStatusPaid
	e.PaidAt = &now
	e.PaymentMethod = &method
	e.PaymentReference = in.Reference
	e.AttachmentRef = in.AttachmentRef
	if in.Notes != "" {
		e.Notes = in.Notes
	}
	e.IncrementVersion()

	payment := &ExpensePayment{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        e.TenantID,
		ExpenseID:       e.ID,
		PaymentSourceID: e.PaymentSourceID,
		Amount:          RoundMoney(in.Amount),
		Method:          in.Method,
		Reference:       in.Reference,
		AttachmentRef:   in.AttachmentRef,
		Notes:           in.Notes,
		PaidAt:          now,
	}
	e.AddDomainEvent(NewExpenseSettledEvent(e, payment))
	return payment, nil
}

// Cancel cancels an unpaid expense
func (e *Expense) Cancel() error {
	if e.Status != ExpenseStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel expense in %s status", e.Status))
	}
	e.Status = ExpenseStatusCancelled
	e.IncrementVersion()
	return nil
}

// IsPaid returns true if expense is paid
func (e *Expense) IsPaid() bool {
	return e.Status == ExpenseStatusPaid
}

// ExpensePayment is the immutable settlement record of an expense
type ExpensePayment struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	ExpenseID       uuid.UUID
	PaymentSourceID *uuid.UUID
	Amount          decimal.Decimal
	Method          PaymentMethod
	Reference       string
	AttachmentRef   string
	Notes           string
	PaidAt          time.Time
}
