package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how money moved for a payment or refund
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodCheque        PaymentMethod = "cheque"
	PaymentMethodCreditBalance PaymentMethod = "credit_balance"
	PaymentMethodOther         PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodCheque, PaymentMethodCreditBalance, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// IsExternal returns true for methods where money enters or leaves the business.
// credit_balance only moves value inside the client's credit ledger.
func (m PaymentMethod) IsExternal() bool {
	return m.IsValid() && m != PaymentMethodCreditBalance
}

// Payment is one immutable movement of money against one invoice.
// Amount is signed: positive for money received, negative for a refund.
// AppliedAmount is the signed part of Amount that changed the invoice's paid
// amount; for an approved overpayment it is smaller than Amount.
type Payment struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	InvoiceID         uuid.UUID
	ClientID          uuid.UUID
	Amount            decimal.Decimal
	AppliedAmount     decimal.Decimal
	Method            PaymentMethod
	PaymentDate       time.Time
	BankReference     string
	Notes             string
	IsOverpayment     bool
	IsRefund          bool
	AdminApproved     bool
	OriginalPaymentID *uuid.UUID
	RecordedBy        *uuid.UUID
}

// NewPayment creates the record of money received against an invoice.
// applied is the part that settles the invoice; the rest is overpayment.
func NewPayment(invoice *Invoice, amount, applied decimal.Decimal, method PaymentMethod, paymentDate time.Time) (*Payment, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if applied.IsNegative() || applied.GreaterThan(amount) {
		return nil, shared.NewDomainError(shared.ErrInvalidAmount.Code, "Applied amount must be between zero and the payment amount")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      invoice.TenantID,
		InvoiceID:     invoice.ID,
		ClientID:      invoice.ClientID,
		Amount:        RoundMoney(amount),
		AppliedAmount: RoundMoney(applied),
		Method:        method,
		PaymentDate:   paymentDate,
		IsOverpayment: applied.LessThan(amount),
	}, nil
}

// NewCreditPayment records client credit spent on an invoice. Credit is
// capped at what remains, so the whole amount is applied.
func NewCreditPayment(invoice *Invoice, creditUsed decimal.Decimal) (*Payment, error) {
	p, err := NewPayment(invoice, creditUsed, creditUsed, PaymentMethodCreditBalance, time.Now())
	if err != nil {
		return nil, err
	}
	p.AdminApproved = true
	return p, nil
}

// NewRefundPayment records money paid back to the client for an invoice.
func NewRefundPayment(invoice *Invoice, refundAmount decimal.Decimal, method PaymentMethod) (*Payment, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if err := ValidateAmount(refundAmount); err != nil {
		return nil, err
	}
	if !method.IsExternal() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Refund method must move money outside the credit ledger")
	}

	negative := RoundMoney(refundAmount).Neg()
	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      invoice.TenantID,
		InvoiceID:     invoice.ID,
		ClientID:      invoice.ClientID,
		Amount:        negative,
		AppliedAmount: negative,
		Method:        method,
		PaymentDate:   time.Now(),
		IsRefund:      true,
	}, nil
}

// WithBankReference sets the bank or refund reference
func (p *Payment) WithBankReference(ref string) *Payment {
	p.BankReference = ref
	return p
}

// WithNotes sets free-form notes
func (p *Payment) WithNotes(notes string) *Payment {
	p.Notes = notes
	return p
}

// WithAdminApproval marks the payment as approved by an administrator
func (p *Payment) WithAdminApproval(approved bool) *Payment {
	p.AdminApproved = approved
	return p
}

// WithOriginalPayment links a refund to the payment it reverses
func (p *Payment) WithOriginalPayment(id uuid.UUID) *Payment {
	p.OriginalPaymentID = &id
	return p
}

// WithRecordedBy sets the operator who recorded the payment
func (p *Payment) WithRecordedBy(userID uuid.UUID) *Payment {
	p.RecordedBy = &userID
	return p
}

// Overpayment returns the part of the payment that was diverted to credit.
func (p *Payment) Overpayment() decimal.Decimal {
	if p.IsRefund {
		return decimal.Zero
	}
	return p.Amount.Sub(p.AppliedAmount)
}
