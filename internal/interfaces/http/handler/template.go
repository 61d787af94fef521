// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"inkflow-ai-api/internal/application/session"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/interfaces/http/dto"
)

// TemplateCatalog 模板只读查询
type TemplateCatalog interface {
	List() []entity.Template
	Get(id string) (entity.Template, error)
}

// TemplateHandler 模板与模型查询
type TemplateHandler struct {
	catalog TemplateCatalog
	session *session.Controller
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(catalog TemplateCatalog, ctrl *session.Controller) *TemplateHandler {
	return &TemplateHandler{catalog: catalog, session: ctrl}
}

// ListTemplates 列出全部模板（按注册顺序）
// @Router /v1/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	dto.Success(c, h.catalog.List())
}

// GetTemplate 获取单个模板
// @Router /v1/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, tpl)
}

// ListModels 返回模型预设与当前选择
// @Router /v1/models [get]
func (h *TemplateHandler) ListModels(c *gin.Context) {
	presets := h.session.ModelPresets()
	dto.Success(c, dto.ModelsResponse{
		Current: h.session.State().Model,
		Fast:    presets.Fast,
		Pro:     presets.Pro,
	})
}
