package handler

import (
	"net/http"
	"path"
	"strings"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExpenseHandler handles expense settlement and receipt uploads
type ExpenseHandler struct {
	BaseHandler
	settler ExpenseSettler
	uploads ReceiptUploader
}

// NewExpenseHandler creates a new ExpenseHandler. uploads may be nil when
// object storage is disabled.
func NewExpenseHandler(settler ExpenseSettler, uploads ReceiptUploader) *ExpenseHandler {
	return &ExpenseHandler{settler: settler, uploads: uploads}
}

// Settle godoc
// @Summary      Settle an expense
// @Description  Marks a pending expense as paid, debiting its payment source when it has one. The attachment reference must name a stored receipt.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID" format(uuid)
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body SettleExpenseRequest true "Settlement"
// @Success      201 {object} dto.Response{data=SettleExpenseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/expenses/{id}/settle [post]
func (h *ExpenseHandler) Settle(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	expenseID, ok := h.pathID(c, "expense")
	if !ok {
		return
	}
	var req SettleExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.settler.SettleExpense(c.Request.Context(), appfinance.SettleExpenseInput{
		TenantID:      tenantID,
		ExpenseID:     expenseID,
		Amount:        req.Amount,
		Method:        finance.PaymentMethod(req.Method),
		Reference:     req.Reference,
		AttachmentRef: req.AttachmentRef,
		Notes:         req.Notes,
		SettledBy:     getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := SettleExpenseResponse{
		ExpenseID:     result.Expense.ID.String(),
		Status:        string(result.Expense.Status),
		PaidAt:        result.Expense.PaidAt,
		Amount:        money(result.Payment.Amount),
		Method:        string(result.Payment.Method),
		Reference:     result.Payment.Reference,
		AttachmentRef: result.Payment.AttachmentRef,
	}
	if result.Transaction != nil {
		tx := toSourceTransactionResponse(result.Transaction)
		resp.Transaction = &tx
	}
	h.Created(c, resp)
}

// ReceiptUpload godoc
// @Summary      Get a receipt upload URL
// @Description  Returns a presigned PUT URL for an expense receipt and the attachment reference to settle with
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID" format(uuid)
// @Param        request body ReceiptUploadRequest true "Receipt file"
// @Success      201 {object} dto.Response{data=ReceiptUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /finance/expenses/{id}/receipt-upload [post]
func (h *ExpenseHandler) ReceiptUpload(c *gin.Context) {
	if h.uploads == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Attachment storage is not configured")
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	expenseID, ok := h.pathID(c, "expense")
	if !ok {
		return
	}
	var req ReceiptUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := receiptFileName(req.FileName)
	if name == "" {
		h.BadRequest(c, "file_name has no usable characters")
		return
	}

	key := path.Join("receipts", tenantID.String(), expenseID.String(), uuid.NewString()+"-"+name)
	url, expires, err := h.uploads.GenerateUploadURL(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ReceiptUploadResponse{AttachmentRef: key, UploadURL: url, ExpiresAt: expires})
}

// receiptFileName keeps the base name of a client supplied file name and
// replaces anything outside [A-Za-z0-9._-] with an underscore
func receiptFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
