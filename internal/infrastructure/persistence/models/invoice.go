package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber string                `gorm:"type:varchar(50);not null;index"`
	ClientID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaidAmount    decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Status        finance.InvoiceStatus `gorm:"type:varchar(30);not null;index"`
	IssueDate     time.Time             `gorm:"not null"`
	DueDate       *time.Time            `gorm:"index"`
	PaidDate      *time.Time
	Notes         string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	return &finance.Invoice{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		ClientID:            m.ClientID,
		Amount:              m.Amount,
		PaidAmount:          m.PaidAmount,
		Status:              m.Status,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		PaidDate:            m.PaidDate,
		Notes:               m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *finance.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.ClientID = inv.ClientID
	m.Amount = inv.Amount
	m.PaidAmount = inv.PaidAmount
	m.Status = inv.Status
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.PaidDate = inv.PaidDate
	m.Notes = inv.Notes
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is an append-only row of the invoice payment history.
type PaymentModel struct {
	BaseModel
	TenantID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID         uuid.UUID             `gorm:"type:uuid;not null;index:idx_payment_invoice_date,priority:1"`
	ClientID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal       `gorm:"type:decimal(18,2);not null;check:chk_payments_refund_sign,(is_refund AND amount < 0) OR (NOT is_refund AND amount > 0)"`
	AppliedAmount     decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Method            finance.PaymentMethod `gorm:"type:varchar(30);not null"`
	PaymentDate       time.Time             `gorm:"not null;index:idx_payment_invoice_date,priority:2"`
	BankReference     string                `gorm:"type:varchar(100)"`
	Notes             string                `gorm:"type:text"`
	IsOverpayment     bool                  `gorm:"not null;default:false"`
	IsRefund          bool                  `gorm:"not null;default:false"`
	AdminApproved     bool                  `gorm:"not null;default:false"`
	OriginalPaymentID *uuid.UUID            `gorm:"type:uuid;index"`
	RecordedBy        *uuid.UUID            `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		InvoiceID:         m.InvoiceID,
		ClientID:          m.ClientID,
		Amount:            m.Amount,
		AppliedAmount:     m.AppliedAmount,
		Method:            m.Method,
		PaymentDate:       m.PaymentDate,
		BankReference:     m.BankReference,
		Notes:             m.Notes,
		IsOverpayment:     m.IsOverpayment,
		IsRefund:          m.IsRefund,
		AdminApproved:     m.AdminApproved,
		OriginalPaymentID: m.OriginalPaymentID,
		RecordedBy:        m.RecordedBy,
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		TenantID:          p.TenantID,
		InvoiceID:         p.InvoiceID,
		ClientID:          p.ClientID,
		Amount:            p.Amount,
		AppliedAmount:     p.AppliedAmount,
		Method:            p.Method,
		PaymentDate:       p.PaymentDate,
		BankReference:     p.BankReference,
		Notes:             p.Notes,
		IsOverpayment:     p.IsOverpayment,
		IsRefund:          p.IsRefund,
		AdminApproved:     p.AdminApproved,
		OriginalPaymentID: p.OriginalPaymentID,
		RecordedBy:        p.RecordedBy,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// PendingCreditModel is the outbox row for overpayment credit.
type PendingCreditModel struct {
	BaseModel
	TenantID  uuid.UUID                   `gorm:"type:uuid;not null;index"`
	ClientID  uuid.UUID                   `gorm:"type:uuid;not null"`
	InvoiceID uuid.UUID                   `gorm:"type:uuid;not null"`
	PaymentID uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex"`
	Amount    decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Status    finance.PendingCreditStatus `gorm:"type:varchar(20);not null;index"`
	Attempts  int                         `gorm:"not null;default:0"`
	LastError string                      `gorm:"type:text"`
	AppliedAt *time.Time
}

// TableName returns the table name for GORM
func (PendingCreditModel) TableName() string {
	return "pending_credits"
}

// ToDomain converts the persistence model to a domain PendingCredit.
func (m *PendingCreditModel) ToDomain() *finance.PendingCredit {
	return &finance.PendingCredit{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		ClientID:   m.ClientID,
		InvoiceID:  m.InvoiceID,
		PaymentID:  m.PaymentID,
		Amount:     m.Amount,
		Status:     m.Status,
		Attempts:   m.Attempts,
		LastError:  m.LastError,
		AppliedAt:  m.AppliedAt,
	}
}

// PendingCreditModelFromDomain creates a new persistence model from a domain PendingCredit.
func PendingCreditModelFromDomain(p *finance.PendingCredit) *PendingCreditModel {
	m := &PendingCreditModel{
		TenantID:  p.TenantID,
		ClientID:  p.ClientID,
		InvoiceID: p.InvoiceID,
		PaymentID: p.PaymentID,
		Amount:    p.Amount,
		Status:    p.Status,
		Attempts:  p.Attempts,
		LastError: p.LastError,
		AppliedAt: p.AppliedAt,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
