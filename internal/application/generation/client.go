// Package generation 调用流式文本生成服务并累积结果
package generation

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inkflow-ai-api/internal/application/prompt"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/service"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
	"inkflow-ai-api/pkg/tracer"
)

// DefaultTemperature 默认采样温度
const DefaultTemperature float32 = 0.7

// Client 生成客户端
type Client struct {
	resolver    service.StreamerResolver
	temperature float32
}

// NewClient 创建生成客户端；temperature <= 0 时使用默认值
func NewClient(resolver service.StreamerResolver, temperature float32) *Client {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Client{
		resolver:    resolver,
		temperature: temperature,
	}
}

// Stream 打开一次流式生成，返回累积快照读取器
//
// 凭证缺失时返回配置错误，且不会产生任何网络调用；打开失败返回提供商错误。
func (c *Client) Stream(ctx context.Context, req entity.GenerationRequest) (*SnapshotReader, error) {
	route, err := c.resolver.Resolve(ctx, req.Model)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewConfigurationError(err.Error())
	}

	compiled := prompt.Compile(req.Template, req.FormData)

	ctx = service.WithTemplateProvider(ctx, req.Template.ID, route.Provider)
	ctx = logger.WithContext(ctx, logger.TemplateIDKey, req.Template.ID)
	ctx = logger.WithContext(ctx, logger.ModelKey, route.Model)
	ctx, span := tracer.Start(ctx, "generation.Stream", trace.WithAttributes(
		attribute.String("template.id", req.Template.ID),
		attribute.String("llm.provider", route.Provider),
		attribute.String("llm.model", route.Model),
	))

	start := time.Now()
	fragments, err := route.Streamer.StreamText(ctx, service.StreamTextRequest{
		Model:             route.Model,
		Prompt:            compiled.UserPrompt,
		SystemInstruction: compiled.SystemInstruction,
		Temperature:       c.temperature,
	})
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(route.Provider, route.Model, "error").Inc()
		metrics.LLMCallDuration.WithLabelValues(route.Provider, route.Model).Observe(time.Since(start).Seconds())
		tracer.RecordError(span, err)
		span.End()
		logger.Warn(ctx, "failed to open generation stream", "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewProviderError(err)
	}

	logger.Debug(ctx, "generation stream opened")

	return &SnapshotReader{
		ctx:       ctx,
		fragments: fragments,
		span:      span,
		provider:  route.Provider,
		model:     route.Model,
		start:     start,
	}, nil
}

// Generate 执行一次生成，每收到一个非空片段就以完整累积文本调用 onPartial
//
// 出错时返回已累积的部分文本与错误，已交付的内容不会回滚。
func (c *Client) Generate(ctx context.Context, req entity.GenerationRequest, onPartial func(accumulated string)) (string, error) {
	reader, err := c.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	for {
		snapshot, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			return reader.Text(), nil
		}
		if err != nil {
			return reader.Text(), err
		}
		if onPartial != nil {
			onPartial(snapshot)
		}
	}
}
