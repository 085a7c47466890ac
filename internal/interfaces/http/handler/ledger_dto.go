package handler

import (
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money values are accepted as JSON strings or numbers and always returned
// as strings with two decimal places.

// ===================== Requests =====================

// RecordPaymentRequest is the body of POST /finance/invoices/:id/payments
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required,money"`
	PaymentDate   *time.Time      `json:"payment_date"`
	Method        string          `json:"method" binding:"required,oneof=cash bank_transfer card cheque other"`
	BankReference string          `json:"bank_reference" binding:"max=100"`
	Notes         string          `json:"notes" binding:"max=500"`
	AdminApproved bool            `json:"admin_approved"`
}

// RefundInvoiceRequest is the body of POST /finance/invoices/:id/refunds
type RefundInvoiceRequest struct {
	Amount            decimal.Decimal `json:"amount" binding:"required,money"`
	Method            string          `json:"method" binding:"required,oneof=cash bank_transfer card cheque other"`
	Reference         string          `json:"reference" binding:"max=100"`
	Notes             string          `json:"notes" binding:"max=500"`
	OriginalPaymentID *string         `json:"original_payment_id" binding:"omitempty,uuid"`
}

// ApplyCreditRequest is the body of POST /partner/clients/:id/credit/apply
type ApplyCreditRequest struct {
	InvoiceID string          `json:"invoice_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" binding:"required,money"`
}

// RefundCreditRequest is the body of POST /partner/clients/:id/credit/refund
type RefundCreditRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required,money"`
	Method    string          `json:"method" binding:"required,oneof=cash bank_transfer card cheque other"`
	Reference string          `json:"reference" binding:"max=100"`
}

// SettleExpenseRequest is the body of POST /finance/expenses/:id/settle
type SettleExpenseRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required,money"`
	Method        string          `json:"method" binding:"required,oneof=cash bank_transfer card cheque other"`
	Reference     string          `json:"reference" binding:"max=100"`
	AttachmentRef string          `json:"attachment_ref" binding:"max=500"`
	Notes         string          `json:"notes" binding:"max=500"`
}

// ReceiptUploadRequest is the body of POST /finance/expenses/:id/receipt-upload
type ReceiptUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required,max=100"`
}

// ReceiptUploadResponse carries a presigned PUT URL and the reference to
// pass as attachment_ref when settling
type ReceiptUploadResponse struct {
	AttachmentRef string    `json:"attachment_ref"`
	UploadURL     string    `json:"upload_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// AdjustBalanceRequest is the body of POST /finance/payment-sources/:id/adjust
type AdjustBalanceRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required,signed_money"`
	Type        string          `json:"type" binding:"omitempty,oneof=adjustment income expense"`
	Description string          `json:"description" binding:"required,max=500"`
}

// ReplayCreditsRequest is the optional body of POST /admin/credits/replay
type ReplayCreditsRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// ===================== Responses =====================

// PaymentResponse represents one invoice payment or refund
type PaymentResponse struct {
	ID                string    `json:"id"`
	InvoiceID         string    `json:"invoice_id"`
	ClientID          string    `json:"client_id"`
	Amount            string    `json:"amount"`
	AppliedAmount     string    `json:"applied_amount"`
	Method            string    `json:"method"`
	PaymentDate       time.Time `json:"payment_date"`
	BankReference     string    `json:"bank_reference,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	IsOverpayment     bool      `json:"is_overpayment"`
	IsRefund          bool      `json:"is_refund"`
	AdminApproved     bool      `json:"admin_approved"`
	OriginalPaymentID *string   `json:"original_payment_id,omitempty"`
	RecordedBy        *string   `json:"recorded_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// RecordPaymentResponse is the outcome of recording a payment
type RecordPaymentResponse struct {
	Payment          PaymentResponse `json:"payment"`
	NewPaidAmount    string          `json:"new_paid_amount"`
	NewStatus        string          `json:"new_status"`
	CreditAdded      string          `json:"credit_added"`
	CreditPending    bool            `json:"credit_pending"`
	NewCreditBalance *string         `json:"new_credit_balance,omitempty"`
}

// RefundInvoiceResponse is the outcome of an invoice refund
type RefundInvoiceResponse struct {
	RefundPayment PaymentResponse `json:"refund_payment"`
	NewPaidAmount string          `json:"new_paid_amount"`
	NewStatus     string          `json:"new_status"`
}

// CreditEntryResponse represents one credit history entry
type CreditEntryResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Amount          string    `json:"amount"`
	PreviousBalance string    `json:"previous_balance"`
	NewBalance      string    `json:"new_balance"`
	InvoiceID       *string   `json:"invoice_id,omitempty"`
	PaymentID       *string   `json:"payment_id,omitempty"`
	Reference       string    `json:"reference,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ClientCreditResponse is a client's credit balance with a page of history
type ClientCreditResponse struct {
	ClientID      string                `json:"client_id"`
	Code          string                `json:"code"`
	Name          string                `json:"name"`
	CreditBalance string                `json:"credit_balance"`
	History       []CreditEntryResponse `json:"history"`
}

// ApplyCreditResponse is the outcome of paying an invoice from credit
type ApplyCreditResponse struct {
	Payment         PaymentResponse `json:"payment"`
	CreditUsed      string          `json:"credit_used"`
	RemainingCredit string          `json:"remaining_credit"`
	NewPaidAmount   string          `json:"new_paid_amount"`
	NewStatus       string          `json:"new_status"`
}

// RefundCreditResponse is the outcome of refunding client credit
type RefundCreditResponse struct {
	ClientID         string              `json:"client_id"`
	Entry            CreditEntryResponse `json:"entry"`
	NewCreditBalance string              `json:"new_credit_balance"`
}

// SourceTransactionResponse represents one payment source transaction
type SourceTransactionResponse struct {
	ID              string    `json:"id"`
	PaymentSourceID string    `json:"payment_source_id"`
	Type            string    `json:"type"`
	Amount          string    `json:"amount"`
	BalanceBefore   string    `json:"balance_before"`
	BalanceAfter    string    `json:"balance_after"`
	ExpenseID       *string   `json:"expense_id,omitempty"`
	Description     string    `json:"description,omitempty"`
	Reference       string    `json:"reference,omitempty"`
	Sequence        int64     `json:"sequence"`
	TransactionDate time.Time `json:"transaction_date"`
}

// PaymentSourceResponse represents a payment source
type PaymentSourceResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	CurrentBalance string `json:"current_balance"`
	IsActive       bool   `json:"is_active"`
	Version        int    `json:"version"`
}

// AdjustBalanceResponse is the outcome of a manual balance adjustment
type AdjustBalanceResponse struct {
	Source      PaymentSourceResponse     `json:"source"`
	Transaction SourceTransactionResponse `json:"transaction"`
}

// SettleExpenseResponse is the outcome of settling an expense
type SettleExpenseResponse struct {
	ExpenseID     string                     `json:"expense_id"`
	Status        string                     `json:"status"`
	PaidAt        *time.Time                 `json:"paid_at,omitempty"`
	Amount        string                     `json:"amount"`
	Method        string                     `json:"method"`
	Reference     string                     `json:"reference,omitempty"`
	AttachmentRef string                     `json:"attachment_ref"`
	Transaction   *SourceTransactionResponse `json:"transaction,omitempty"`
}

// VerificationResponse reports a balance recomputed from history
type VerificationResponse struct {
	EntityType        string `json:"entity_type"`
	EntityID          string `json:"entity_id"`
	StoredBalance     string `json:"stored_balance"`
	RecomputedBalance string `json:"recomputed_balance"`
	EntryCount        int    `json:"entry_count"`
	Consistent        bool   `json:"consistent"`
	Reason            string `json:"reason,omitempty"`
}

// ReplayCreditsResponse counts pending credits handled by a replay run
type ReplayCreditsResponse struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// ===================== Converters =====================

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID.String(),
		InvoiceID:         p.InvoiceID.String(),
		ClientID:          p.ClientID.String(),
		Amount:            money(p.Amount),
		AppliedAmount:     money(p.AppliedAmount),
		Method:            string(p.Method),
		PaymentDate:       p.PaymentDate,
		BankReference:     p.BankReference,
		Notes:             p.Notes,
		IsOverpayment:     p.IsOverpayment,
		IsRefund:          p.IsRefund,
		AdminApproved:     p.AdminApproved,
		OriginalPaymentID: optionalID(p.OriginalPaymentID),
		RecordedBy:        optionalID(p.RecordedBy),
		CreatedAt:         p.CreatedAt,
	}
}

func toPaymentResponses(payments []*finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	return out
}

func toRecordPaymentResponse(r *appfinance.RecordPaymentResult) RecordPaymentResponse {
	resp := RecordPaymentResponse{
		Payment:       toPaymentResponse(r.Payment),
		NewPaidAmount: money(r.NewPaidAmount),
		NewStatus:     string(r.NewStatus),
		CreditAdded:   money(r.CreditAdded),
		CreditPending: r.CreditPending,
	}
	if r.NewCreditBalance != nil {
		balance := money(*r.NewCreditBalance)
		resp.NewCreditBalance = &balance
	}
	return resp
}

func toCreditEntryResponse(e *partner.CreditHistoryEntry) CreditEntryResponse {
	return CreditEntryResponse{
		ID:              e.ID.String(),
		Type:            string(e.Type),
		Amount:          money(e.Amount),
		PreviousBalance: money(e.PreviousBalance),
		NewBalance:      money(e.NewBalance),
		InvoiceID:       optionalID(e.InvoiceID),
		PaymentID:       optionalID(e.PaymentID),
		Reference:       e.Reference,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
	}
}

func toSourceTransactionResponse(tx *finance.PaymentSourceTransaction) SourceTransactionResponse {
	return SourceTransactionResponse{
		ID:              tx.ID.String(),
		PaymentSourceID: tx.PaymentSourceID.String(),
		Type:            string(tx.Type),
		Amount:          money(tx.Amount),
		BalanceBefore:   money(tx.BalanceBefore),
		BalanceAfter:    money(tx.BalanceAfter),
		ExpenseID:       optionalID(tx.ExpenseID),
		Description:     tx.Description,
		Reference:       tx.Reference,
		Sequence:        tx.Sequence,
		TransactionDate: tx.TransactionDate,
	}
}

func toPaymentSourceResponse(s *finance.PaymentSource) PaymentSourceResponse {
	return PaymentSourceResponse{
		ID:             s.ID.String(),
		Name:           s.Name,
		Type:           string(s.Type),
		CurrentBalance: money(s.CurrentBalance),
		IsActive:       s.IsActive,
		Version:        s.Version,
	}
}

func toVerificationResponse(v *appfinance.BalanceVerification) VerificationResponse {
	resp := VerificationResponse{
		EntityType:        v.EntityType,
		EntityID:          v.EntityID.String(),
		StoredBalance:     money(v.StoredBalance),
		RecomputedBalance: money(v.RecomputedBalance),
		EntryCount:        v.EntryCount,
		Consistent:        v.Consistent,
	}
	if v.Inconsistency != nil {
		resp.Reason = v.Inconsistency.Reason
	}
	return resp
}
