// Package session 编排模板选择、生成与历史记录的会话状态机
package session

import (
	"inkflow-ai-api/internal/domain/entity"
)

// Status 会话状态
type Status string

const (
	StatusReady      Status = "ready"
	StatusGenerating Status = "generating"
	StatusError      Status = "error"
)

// State 会话状态快照，供渲染层使用
type State struct {
	SelectedTemplate entity.Template `json:"selected_template"`
	FormData         entity.FormData `json:"form_data"`
	Model            string          `json:"model"`
	GeneratedContent string          `json:"generated_content"`
	IsGenerating     bool            `json:"is_generating"`
	Error            string          `json:"error,omitempty"`
	Status           Status          `json:"status"`
}

func (s State) clone() State {
	s.FormData = s.FormData.Clone()
	s.Status = s.status()
	return s
}

func (s State) status() Status {
	switch {
	case s.IsGenerating:
		return StatusGenerating
	case s.Error != "":
		return StatusError
	default:
		return StatusReady
	}
}

// ModelPresets 模型预设
type ModelPresets struct {
	Fast string `json:"fast"`
	Pro  string `json:"pro"`
}

// DefaultModelPresets 默认的快速 / 高质量模型
var DefaultModelPresets = ModelPresets{
	Fast: "gemini-3-flash-preview",
	Pro:  "gemini-3-pro-preview",
}
