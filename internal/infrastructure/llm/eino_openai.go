package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/service"
)

// EinoStreamer 通过 Eino 的 OpenAI 适配器访问任意 OpenAI 兼容端点
type EinoStreamer struct {
	name      string
	chatModel model.BaseChatModel
}

// NewEinoStreamer 创建 OpenAI 兼容的 ChatModel
func NewEinoStreamer(ctx context.Context, name string, cfg config.ProviderConfig) (service.TextStreamer, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}
	return &EinoStreamer{name: name, chatModel: chatModel}, nil
}

// StreamText 打开一次流式生成；调用指标与追踪由全局 Eino 回调记录
func (e *EinoStreamer) StreamText(ctx context.Context, req service.StreamTextRequest) (service.FragmentReader, error) {
	msgs := make([]*schema.Message, 0, 2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, schema.SystemMessage(req.SystemInstruction))
	}
	msgs = append(msgs, schema.UserMessage(req.Prompt))

	opts := []model.Option{model.WithTemperature(req.Temperature)}
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}

	// 直接调用组件（不经过 compose 图）时需显式初始化回调管理器，全局回调才会生效
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      e.name,
		Type:      "OpenAI",
		Component: components.ComponentOfChatModel,
	})

	reader, err := e.chatModel.Stream(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return &einoReader{reader: reader}, nil
}

type einoReader struct {
	reader *schema.StreamReader[*schema.Message]
}

func (r *einoReader) Recv() (string, error) {
	msg, err := r.reader.Recv()
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func (r *einoReader) Close() {
	r.reader.Close()
}
