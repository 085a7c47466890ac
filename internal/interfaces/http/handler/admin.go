package handler

import (
	"github.com/gin-gonic/gin"
)

// PermissionLedgerAdmin gates maintenance endpoints
const PermissionLedgerAdmin = "ledger:admin"

const defaultReplayLimit = 100

// AdminHandler exposes ledger maintenance operations
type AdminHandler struct {
	BaseHandler
	replayer CreditReplayer
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(replayer CreditReplayer) *AdminHandler {
	return &AdminHandler{replayer: replayer}
}

// ReplayCredits godoc
// @Summary      Replay pending credits
// @Description  Retries overpayments whose credit was not written when the payment was recorded
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body ReplayCreditsRequest false "Batch size"
// @Success      200 {object} dto.Response{data=ReplayCreditsResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/credits/replay [post]
func (h *AdminHandler) ReplayCredits(c *gin.Context) {
	var req ReplayCreditsRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultReplayLimit
	}

	result, err := h.replayer.ReplayPendingCredits(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReplayCreditsResponse{Applied: result.Applied, Failed: result.Failed})
}
