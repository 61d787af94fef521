package entity

// GenerationRequest 一次生成请求，值对象，不持久化
type GenerationRequest struct {
	Template Template
	FormData FormData
	Model    string
}

// NewGenerationRequest 创建生成请求；表单数据会被复制
func NewGenerationRequest(t Template, data FormData, model string) GenerationRequest {
	return GenerationRequest{
		Template: t,
		FormData: data.Clone(),
		Model:    model,
	}
}
