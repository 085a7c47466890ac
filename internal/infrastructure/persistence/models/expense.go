package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseModel is the persistence model for the Expense aggregate root.
type ExpenseModel struct {
	TenantAggregateModel
	ExpenseNumber    string                  `gorm:"type:varchar(50);not null;index"`
	Category         finance.ExpenseCategory `gorm:"type:varchar(30);not null;index"`
	Amount           decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Description      string                  `gorm:"type:varchar(500);not null"`
	IncurredAt       time.Time               `gorm:"not null"`
	PaymentSourceID  *uuid.UUID              `gorm:"type:uuid;index"`
	Status           finance.ExpenseStatus   `gorm:"type:varchar(20);not null;index"`
	PaidAt           *time.Time
	PaymentMethod    *finance.PaymentMethod `gorm:"type:varchar(30)"`
	PaymentReference string                 `gorm:"type:varchar(100)"`
	AttachmentRef    string                 `gorm:"type:varchar(500)"`
	Notes            string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the persistence model to a domain Expense.
func (m *ExpenseModel) ToDomain() *finance.Expense {
	return &finance.Expense{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ExpenseNumber:       m.ExpenseNumber,
		Category:            m.Category,
		Amount:              m.Amount,
		Description:         m.Description,
		IncurredAt:          m.IncurredAt,
		PaymentSourceID:     m.PaymentSourceID,
		Status:              m.Status,
		PaidAt:              m.PaidAt,
		PaymentMethod:       m.PaymentMethod,
		PaymentReference:    m.PaymentReference,
		AttachmentRef:       m.AttachmentRef,
		Notes:               m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Expense.
func (m *ExpenseModel) FromDomain(e *finance.Expense) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.ExpenseNumber = e.ExpenseNumber
	m.Category = e.Category
	m.Amount = e.Amount
	m.Description = e.Description
	m.IncurredAt = e.IncurredAt
	m.PaymentSourceID = e.PaymentSourceID
	m.Status = e.Status
	m.PaidAt = e.PaidAt
	m.PaymentMethod = e.PaymentMethod
	m.PaymentReference = e.PaymentReference
	m.AttachmentRef = e.AttachmentRef
	m.Notes = e.Notes
}

// ExpenseModelFromDomain creates a new persistence model from a domain Expense.
func ExpenseModelFromDomain(e *finance.Expense) *ExpenseModel {
	m := &ExpenseModel{}
	m.FromDomain(e)
	return m
}

// ExpensePaymentModel is the settlement record of an expense.
type ExpensePaymentModel struct {
	BaseModel
	TenantID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	ExpenseID       uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex"`
	PaymentSourceID *uuid.UUID            `gorm:"type:uuid;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Method          finance.PaymentMethod `gorm:"type:varchar(30);not null"`
	Reference       string                `gorm:"type:varchar(100)"`
	AttachmentRef   string                `gorm:"type:varchar(500);not null"`
	Notes           string                `gorm:"type:text"`
	PaidAt          time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExpensePaymentModel) TableName() string {
	return "expense_payments"
}

// ToDomain converts the persistence model to a domain ExpensePayment.
func (m *ExpensePaymentModel) ToDomain() *finance.ExpensePayment {
	return &finance.ExpensePayment{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		ExpenseID:       m.ExpenseID,
		PaymentSourceID: m.PaymentSourceID,
		Amount:          m.Amount,
		Method:          m.Method,
		Reference:       m.Reference,
		AttachmentRef:   m.AttachmentRef,
		Notes:           m.Notes,
		PaidAt:          m.PaidAt,
	}
}

// ExpensePaymentModelFromDomain creates a new persistence model from a domain ExpensePayment.
func ExpensePaymentModelFromDomain(p *finance.ExpensePayment) *ExpensePaymentModel {
	m := &ExpensePaymentModel{
		TenantID:        p.TenantID,
		ExpenseID:       p.ExpenseID,
		PaymentSourceID: p.PaymentSourceID,
		Amount:          p.Amount,
		Method:          p.Method,
		Reference:       p.Reference,
		AttachmentRef:   p.AttachmentRef,
		Notes:           p.Notes,
		PaidAt:          p.PaidAt,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
