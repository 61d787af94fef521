package service

import "context"

// StreamTextRequest 发送给生成服务的一次请求
type StreamTextRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Temperature       float32
}

// FragmentReader 生成服务返回的文本片段序列
//
// Recv 按到达顺序返回片段，正常结束时返回 io.EOF。Close 可重复调用。
type FragmentReader interface {
	Recv() (string, error)
	Close()
}

// TextStreamer 流式文本生成能力
// 说明：该接口位于 domain/service，基础设施层的 Gemini / OpenAI 适配器实现它。
type TextStreamer interface {
	StreamText(ctx context.Context, req StreamTextRequest) (FragmentReader, error)
}

// StreamRoute 模型名解析后的路由结果
type StreamRoute struct {
	Provider string
	Model    string
	Streamer TextStreamer
}

// StreamerResolver 根据模型名选择提供商
// 约定：凭证缺失时必须在任何网络调用之前返回配置错误。
type StreamerResolver interface {
	Resolve(ctx context.Context, model string) (StreamRoute, error)
}
