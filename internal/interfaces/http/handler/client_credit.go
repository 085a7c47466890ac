package handler

import (
	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientCreditHandler handles client credit endpoints
type ClientCreditHandler struct {
	BaseHandler
	credits  ClientCreditLedger
	applier  CreditApplier
	verifier LedgerVerifier
}

// NewClientCreditHandler creates a new ClientCreditHandler
func NewClientCreditHandler(credits ClientCreditLedger, applier CreditApplier, verifier LedgerVerifier) *ClientCreditHandler {
	return &ClientCreditHandler{credits: credits, applier: applier, verifier: verifier}
}

// GetCredit godoc
// @Summary      Get client credit
// @Description  Returns the client's credit balance with a page of its history, newest first
// @Tags         client-credit
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=ClientCreditResponse,meta=dto.Meta}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/clients/{id}/credit [get]
func (h *ClientCreditHandler) GetCredit(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	clientID, ok := h.pathID(c, "client")
	if !ok {
		return
	}
	var page dto.ListRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	page.Normalize()

	filter := page.Filter()

	result, err := h.credits.GetClientCredit(c.Request.Context(), tenantID, clientID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	history := make([]CreditEntryResponse, 0, len(result.History.Items))
	for _, e := range result.History.Items {
		history = append(history, toCreditEntryResponse(e))
	}
	h.SuccessWithMeta(c, ClientCreditResponse{
		ClientID:      result.Client.ID.String(),
		Code:          result.Client.Code,
		Name:          result.Client.Name,
		CreditBalance: money(result.Client.CreditBalance),
		History:       history,
	}, result.History.Total, result.History.Page, result.History.PageSize)
}

// ApplyCredit godoc
// @Summary      Pay an invoice from client credit
// @Description  Spends up to the requested amount of the client's credit on one of the client's invoices
// @Tags         client-credit
// @Accept       json
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body ApplyCreditRequest true "Credit application"
// @Success      201 {object} dto.Response{data=ApplyCreditResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/clients/{id}/credit/apply [post]
func (h *ClientCreditHandler) ApplyCredit(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	clientID, ok := h.pathID(c, "client")
	if !ok {
		return
	}
	var req ApplyCreditRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.applier.ApplyCreditToInvoice(c.Request.Context(), appfinance.ApplyCreditInput{
		TenantID:        tenantID,
		InvoiceID:       uuid.MustParse(req.InvoiceID),
		ClientID:        clientID,
		RequestedAmount: req.Amount,
		AppliedBy:       getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ApplyCreditResponse{
		Payment:         toPaymentResponse(result.Payment),
		CreditUsed:      money(result.CreditUsed),
		RemainingCredit: money(result.RemainingCredit),
		NewPaidAmount:   money(result.NewPaidAmount),
		NewStatus:       string(result.NewStatus),
	})
}

// RefundCredit godoc
// @Summary      Refund client credit
// @Description  Pays part of the client's credit back outside the system
// @Tags         client-credit
// @Accept       json
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body RefundCreditRequest true "Credit refund"
// @Success      201 {object} dto.Response{data=RefundCreditResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/clients/{id}/credit/refund [post]
func (h *ClientCreditHandler) RefundCredit(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	clientID, ok := h.pathID(c, "client")
	if !ok {
		return
	}
	var req RefundCreditRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.credits.RefundClientCredit(c.Request.Context(), appfinance.RefundCreditInput{
		TenantID:   tenantID,
		ClientID:   clientID,
		Amount:     req.Amount,
		Method:     finance.PaymentMethod(req.Method),
		Reference:  req.Reference,
		OperatorID: getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, RefundCreditResponse{
		ClientID:         clientID.String(),
		Entry:            toCreditEntryResponse(result.Entry),
		NewCreditBalance: money(result.NewCreditBalance),
	})
}

// VerifyCredit godoc
// @Summary      Verify a client's credit balance
// @Description  Replays the credit history and compares it with the stored balance
// @Tags         reconciliation
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=VerificationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /partner/clients/{id}/credit/verify [get]
func (h *ClientCreditHandler) VerifyCredit(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	clientID, ok := h.pathID(c, "client")
	if !ok {
		return
	}
	v, err := h.verifier.VerifyClientBalance(c.Request.Context(), tenantID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toVerificationResponse(v))
}
