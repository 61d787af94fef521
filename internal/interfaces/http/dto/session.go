package dto

import (
	"inkflow-ai-api/internal/domain/entity"
)

// SelectTemplateRequest 切换模板请求
type SelectTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// SelectModelRequest 切换模型请求
type SelectModelRequest struct {
	Model string `json:"model" binding:"required"`
}

// UpdateFieldsRequest 更新表单字段请求
type UpdateFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// ModelsResponse 可选模型
type ModelsResponse struct {
	Current string `json:"current"`
	Fast    string `json:"fast"`
	Pro     string `json:"pro"`
}

// ContentEvent 生成中的累积快照
type ContentEvent struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// DoneEvent 生成完成
type DoneEvent struct {
	Record entity.HistoryRecord `json:"record"`
}

// ErrorEvent 生成失败；content 为已生成的部分内容
type ErrorEvent struct {
	Message string `json:"message"`
	Content string `json:"content"`
}
