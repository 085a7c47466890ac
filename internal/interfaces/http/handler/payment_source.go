package handler

import (
	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PaymentSourceHandler handles payment source ledger endpoints
type PaymentSourceHandler struct {
	BaseHandler
	sources  PaymentSourceLedger
	verifier LedgerVerifier
}

// NewPaymentSourceHandler creates a new PaymentSourceHandler
func NewPaymentSourceHandler(sources PaymentSourceLedger, verifier LedgerVerifier) *PaymentSourceHandler {
	return &PaymentSourceHandler{sources: sources, verifier: verifier}
}

// Get godoc
// @Summary      Get a payment source
// @Tags         payment-sources
// @Produce      json
// @Param        id path string true "Payment source ID" format(uuid)
// @Success      200 {object} dto.Response{data=PaymentSourceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/payment-sources/{id} [get]
func (h *PaymentSourceHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sourceID, ok := h.pathID(c, "payment source")
	if !ok {
		return
	}
	source, err := h.sources.GetPaymentSource(c.Request.Context(), tenantID, sourceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentSourceResponse(source))
}

// ListTransactions godoc
// @Summary      List payment source transactions
// @Description  Returns a page of the source's ledger, newest first
// @Tags         payment-sources
// @Produce      json
// @Param        id path string true "Payment source ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]SourceTransactionResponse,meta=dto.Meta}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/payment-sources/{id}/transactions [get]
func (h *PaymentSourceHandler) ListTransactions(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sourceID, ok := h.pathID(c, "payment source")
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

	result, err := h.sources.ListTransactions(c.Request.Context(), tenantID, sourceID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]SourceTransactionResponse, 0, len(result.Items))
	for _, tx := range result.Items {
		items = append(items, toSourceTransactionResponse(tx))
	}
	h.SuccessWithMeta(c, items, result.Total, result.Page, result.PageSize)
}

// Adjust godoc
// @Summary      Adjust a payment source balance
// @Description  Records a signed manual correction. Non-credit sources cannot go below zero.
// @Tags         payment-sources
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment source ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body AdjustBalanceRequest true "Adjustment"
// @Success      201 {object} dto.Response{data=AdjustBalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/payment-sources/{id}/adjust [post]
func (h *PaymentSourceHandler) Adjust(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sourceID, ok := h.pathID(c, "payment source")
	if !ok {
		return
	}
	var req AdjustBalanceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.sources.AdjustBalance(c.Request.Context(), appfinance.AdjustBalanceInput{
		TenantID:    tenantID,
		SourceID:    sourceID,
		Amount:      req.Amount,
		Type:        finance.PaymentSourceTransactionType(req.Type),
		Description: req.Description,
		OperatorID:  getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, AdjustBalanceResponse{
		Source:      toPaymentSourceResponse(result.Source),
		Transaction: toSourceTransactionResponse(result.Transaction),
	})
}

// Verify godoc
// @Summary      Verify a payment source balance
// @Description  Replays the transaction history and compares it with the cached balance
// @Tags         reconciliation
// @Produce      json
// @Param        id path string true "Payment source ID" format(uuid)
// @Success      200 {object} dto.Response{data=VerificationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/payment-sources/{id}/verify [get]
func (h *PaymentSourceHandler) Verify(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sourceID, ok := h.pathID(c, "payment source")
	if !ok {
		return
	}
	v, err := h.verifier.VerifyPaymentSourceBalance(c.Request.Context(), tenantID, sourceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toVerificationResponse(v))
}
