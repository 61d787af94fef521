package handler

import (
	"github.com/gin-gonic/gin"

	"inkflow-ai-api/internal/application/session"
	"inkflow-ai-api/internal/interfaces/http/dto"
)

// HistoryHandler 历史记录
type HistoryHandler struct {
	session *session.Controller
}

// NewHistoryHandler 创建历史记录处理器
func NewHistoryHandler(ctrl *session.Controller) *HistoryHandler {
	return &HistoryHandler{session: ctrl}
}

// ListHistory 列出历史（最新在前）
// @Router /v1/history [get]
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	dto.Success(c, h.session.History())
}

// LoadHistoryItem 载入一条历史记录到会话
// @Router /v1/history/{id}/load [post]
func (h *HistoryHandler) LoadHistoryItem(c *gin.Context) {
	state, err := h.session.LoadHistoryItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, state)
}

// DeleteHistoryItem 删除一条历史记录；ID 不存在时同样成功
// @Router /v1/history/{id} [delete]
func (h *HistoryHandler) DeleteHistoryItem(c *gin.Context) {
	dto.Success(c, h.session.DeleteHistoryItem(c.Request.Context(), c.Param("id")))
}

// ClearHistory 清空历史
// @Router /v1/history [delete]
func (h *HistoryHandler) ClearHistory(c *gin.Context) {
	h.session.ClearHistory(c.Request.Context())
	dto.NoContent(c)
}
