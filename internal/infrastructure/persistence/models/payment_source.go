package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentSourceModel is the persistence model for the PaymentSource aggregate root.
type PaymentSourceModel struct {
	TenantAggregateModel
	Name           string                    `gorm:"type:varchar(100);not null"`
	Type           finance.PaymentSourceType `gorm:"type:varchar(20);not null"`
	CurrentBalance decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	IsActive       bool                      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (PaymentSourceModel) TableName() string {
	return "payment_sources"
}

// ToDomain converts the persistence model to a domain PaymentSource.
func (m *PaymentSourceModel) ToDomain() *finance.PaymentSource {
	return &finance.PaymentSource{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Type:                m.Type,
		CurrentBalance:      m.CurrentBalance,
		IsActive:            m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain PaymentSource.
func (m *PaymentSourceModel) FromDomain(s *finance.PaymentSource) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.Name = s.Name
	m.Type = s.Type
	m.CurrentBalance = s.CurrentBalance
	m.IsActive = s.IsActive
}

// PaymentSourceModelFromDomain creates a new persistence model from a domain PaymentSource.
func PaymentSourceModelFromDomain(s *finance.PaymentSource) *PaymentSourceModel {
	m := &PaymentSourceModel{}
	m.FromDomain(s)
	return m
}

// PaymentSourceTransactionModel is an append-only row of a payment source ledger.
type PaymentSourceTransactionModel struct {
	BaseModel
	TenantID        uuid.UUID                            `gorm:"type:uuid;not null;index"`
	PaymentSourceID uuid.UUID                            `gorm:"type:uuid;not null;uniqueIndex:idx_source_tx_sequence,priority:1"`
	Sequence        int64                                `gorm:"not null;uniqueIndex:idx_source_tx_sequence,priority:2"`
	Type            finance.PaymentSourceTransactionType `gorm:"type:varchar(20);not null"`
	Amount          decimal.Decimal                      `gorm:"type:decimal(18,2);not null"`
	BalanceBefore   decimal.Decimal                      `gorm:"type:decimal(18,2);not null"`
	BalanceAfter    decimal.Decimal                      `gorm:"type:decimal(18,2);not null"`
	ExpenseID       *uuid.UUID                           `gorm:"type:uuid;index"`
	Description     string                               `gorm:"type:varchar(500)"`
	Reference       string                               `gorm:"type:varchar(100)"`
	CreatedBy       *uuid.UUID                           `gorm:"type:uuid"`
	TransactionDate time.Time                            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentSourceTransactionModel) TableName() string {
	return "payment_source_transactions"
}

// ToDomain converts the persistence model to a domain PaymentSourceTransaction.
func (m *PaymentSourceTransactionModel) ToDomain() *finance.PaymentSourceTransaction {
	return &finance.PaymentSourceTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		PaymentSourceID: m.PaymentSourceID,
		Type:            m.Type,
		Amount:          m.Amount,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		ExpenseID:       m.ExpenseID,
		Description:     m.Description,
		Reference:       m.Reference,
		CreatedBy:       m.CreatedBy,
		TransactionDate: m.TransactionDate,
		Sequence:        m.Sequence,
	}
}

// PaymentSourceTransactionModelFromDomain creates a new persistence model from a domain transaction.
func PaymentSourceTransactionModelFromDomain(t *finance.PaymentSourceTransaction) *PaymentSourceTransactionModel {
	m := &PaymentSourceTransactionModel{
		TenantID:        t.TenantID,
		PaymentSourceID: t.PaymentSourceID,
		Sequence:        t.Sequence,
		Type:            t.Type,
		Amount:          t.Amount,
		BalanceBefore:   t.BalanceBefore,
		BalanceAfter:    t.BalanceAfter,
		ExpenseID:       t.ExpenseID,
		Description:     t.Description,
		Reference:       t.Reference,
		CreatedBy:       t.CreatedBy,
		TransactionDate: t.TransactionDate,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}
