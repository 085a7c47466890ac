package models

import (
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for the Client aggregate root.
type ClientModel struct {
	TenantAggregateModel
	Code          string               `gorm:"type:varchar(50);not null;index"`
	Name          string               `gorm:"type:varchar(200);not null"`
	Email         string               `gorm:"type:varchar(200)"`
	Status        partner.ClientStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CreditBalance decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client.
func (m *ClientModel) ToDomain() *partner.Client {
	return &partner.Client{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Email:               m.Email,
		Status:              m.Status,
		CreditBalance:       m.CreditBalance,
	}
}

// FromDomain populates the persistence model from a domain Client.
func (m *ClientModel) FromDomain(c *partner.Client) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Code = c.Code
	m.Name = c.Name
	m.Email = c.Email
	m.Status = c.Status
	m.CreditBalance = c.CreditBalance
}

// ClientModelFromDomain creates a new persistence model from a domain Client.
func ClientModelFromDomain(c *partner.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// CreditHistoryModel is an append-only row of a client's credit ledger.
// The (payment_id, type) index keeps overpayment credit from being added twice.
type CreditHistoryModel struct {
	BaseModel
	TenantID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	ClientID        uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_credit_history_sequence,priority:1"`
	Sequence        int64                   `gorm:"not null;uniqueIndex:idx_credit_history_sequence,priority:2"`
	Type            partner.CreditEntryType `gorm:"type:varchar(20);not null;uniqueIndex:idx_credit_history_payment_type,priority:2"`
	Amount          decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	PreviousBalance decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	NewBalance      decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	InvoiceID       *uuid.UUID              `gorm:"type:uuid;index"`
	PaymentID       *uuid.UUID              `gorm:"type:uuid;uniqueIndex:idx_credit_history_payment_type,priority:1"`
	Reference       string                  `gorm:"type:varchar(100)"`
	Description     string                  `gorm:"type:varchar(500)"`
	OperatorID      *uuid.UUID              `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CreditHistoryModel) TableName() string {
	return "credit_history"
}

// ToDomain converts the persistence model to a domain CreditHistoryEntry.
func (m *CreditHistoryModel) ToDomain() *partner.CreditHistoryEntry {
	return &partner.CreditHistoryEntry{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		ClientID:        m.ClientID,
		Type:            m.Type,
		Amount:          m.Amount,
		PreviousBalance: m.PreviousBalance,
		NewBalance:      m.NewBalance,
		InvoiceID:       m.InvoiceID,
		PaymentID:       m.PaymentID,
		Reference:       m.Reference,
		Description:     m.Description,
		OperatorID:      m.OperatorID,
		Sequence:        m.Sequence,
	}
}

// CreditHistoryModelFromDomain creates a new persistence model from a domain entry.
func CreditHistoryModelFromDomain(e *partner.CreditHistoryEntry) *CreditHistoryModel {
	m := &CreditHistoryModel{
		TenantID:        e.TenantID,
		ClientID:        e.ClientID,
		Sequence:        e.Sequence,
		Type:            e.Type,
		Amount:          e.Amount,
		PreviousBalance: e.PreviousBalance,
		NewBalance:      e.NewBalance,
		InvoiceID:       e.InvoiceID,
		PaymentID:       e.PaymentID,
		Reference:       e.Reference,
		Description:     e.Description,
		OperatorID:      e.OperatorID,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// LedgerModels lists every table of the ledger, in dependency order.
func LedgerModels() []any {
	return []any{
		&ClientModel{},
		&CreditHistoryModel{},
		&InvoiceModel{},
		&PaymentModel{},
		&PendingCreditModel{},
		&PaymentSourceModel{},
		&PaymentSourceTransactionModel{},
		&ExpenseModel{},
		&ExpensePaymentModel{},
	}
}
