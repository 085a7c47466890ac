package handler

import (
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoicePaymentHandler handles invoice payment, refund and verification endpoints
type InvoicePaymentHandler struct {
	BaseHandler
	payments PaymentRecorder
	refunds  InvoiceRefunder
	verifier LedgerVerifier
}

// NewInvoicePaymentHandler creates a new InvoicePaymentHandler
func NewInvoicePaymentHandler(payments PaymentRecorder, refunds InvoiceRefunder, verifier LedgerVerifier) *InvoicePaymentHandler {
	return &InvoicePaymentHandler{payments: payments, refunds: refunds, verifier: verifier}
}

// RecordPayment godoc
// @Summary      Record an invoice payment
// @Description  Applies a payment to an invoice. A payment above the remaining balance is rejected with 409 unless admin_approved is set by a caller holding ledger:approve_overpayment; the excess then becomes client credit.
// @Tags         invoice-payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=RecordPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/invoices/{id}/payments [post]
func (h *InvoicePaymentHandler) RecordPayment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "invoice")
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.AdminApproved && !middleware.HasPermission(c, auth.PermissionApproveOverpayment) {
		h.Forbidden(c, "Approving an overpayment requires "+auth.PermissionApproveOverpayment)
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), appfinance.RecordPaymentInput{
		TenantID:      tenantID,
		InvoiceID:     invoiceID,
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		Method:        finance.PaymentMethod(req.Method),
		BankReference: req.BankReference,
		Notes:         req.Notes,
		AdminApproved: req.AdminApproved,
		RecordedBy:    getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toRecordPaymentResponse(result))
}

// ListPayments godoc
// @Summary      List invoice payments
// @Description  Returns every payment and refund of an invoice, oldest first
// @Tags         invoice-payments
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/invoices/{id}/payments [get]
func (h *InvoicePaymentHandler) ListPayments(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "invoice")
	if !ok {
		return
	}
	payments, err := h.payments.ListPayments(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponses(payments))
}

// RefundInvoice godoc
// @Summary      Refund an invoice
// @Description  Records a refund against an invoice's paid amount. Refunds never touch client credit.
// @Tags         invoice-payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body RefundInvoiceRequest true "Refund"
// @Success      201 {object} dto.Response{data=RefundInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/invoices/{id}/refunds [post]
func (h *InvoicePaymentHandler) RefundInvoice(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "invoice")
	if !ok {
		return
	}
	var req RefundInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	in := appfinance.RefundInvoiceInput{
		TenantID:        tenantID,
		InvoiceID:       invoiceID,
		RefundAmount:    req.Amount,
		RefundMethod:    finance.PaymentMethod(req.Method),
		RefundReference: req.Reference,
		Notes:           req.Notes,
		RecordedBy:      getUserID(c),
	}
	if req.OriginalPaymentID != nil {
		id := uuid.MustParse(*req.OriginalPaymentID)
		in.OriginalPaymentID = &id
	}

	result, err := h.refunds.RefundInvoicePayment(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, RefundInvoiceResponse{
		RefundPayment: toPaymentResponse(result.RefundPayment),
		NewPaidAmount: money(result.NewPaidAmount),
		NewStatus:     string(result.NewStatus),
	})
}

// VerifyInvoice godoc
// @Summary      Verify an invoice's paid amount
// @Description  Recomputes the paid amount from payment history and compares it with the stored value
// @Tags         reconciliation
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=VerificationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/invoices/{id}/verify [get]
func (h *InvoicePaymentHandler) VerifyInvoice(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "invoice")
	if !ok {
		return
	}
	v, err := h.verifier.VerifyInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toVerificationResponse(v))
}
