// Package llm 提供生成服务提供商适配器
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/service"
	apperrors "inkflow-ai-api/pkg/errors"
)

const (
	KindGemini = "gemini"
	KindOpenAI = "openai"
)

// MissingKeyMessage 凭证缺失时的提示
const MissingKeyMessage = "API Key is missing. Please set GEMINI_API_KEY or llm.providers.<name>.api_key in your configuration."

// Builder 根据提供商配置创建 TextStreamer
type Builder func(ctx context.Context, name string, cfg config.ProviderConfig) (service.TextStreamer, error)

// Factory 管理多个提供商的 TextStreamer 实例，惰性创建并缓存
type Factory struct {
	config   *config.LLMConfig
	builders map[string]Builder
	group    singleflight.Group

	mu        sync.RWMutex
	streamers map[string]service.TextStreamer
}

var _ service.StreamerResolver = (*Factory)(nil)

// NewFactory 创建提供商工厂
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		config: &cfg.LLM,
		builders: map[string]Builder{
			KindGemini: NewGeminiStreamer,
			KindOpenAI: NewEinoStreamer,
		},
		streamers: make(map[string]service.TextStreamer),
	}
}

// RegisterBuilder 覆盖某类提供商的构建函数
func (f *Factory) RegisterBuilder(kind string, b Builder) {
	f.builders[kind] = b
}

// Resolve 解析模型名并返回对应提供商
//
// 模型名可写作 "<provider>:<model>" 指定提供商，否则使用默认提供商；
// 凭证缺失时返回配置错误，此时不会创建客户端。
func (f *Factory) Resolve(ctx context.Context, model string) (service.StreamRoute, error) {
	name, modelName := f.split(model)

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return service.StreamRoute{}, apperrors.NewConfigurationError(
			fmt.Sprintf("llm provider %s is not configured", name))
	}
	if strings.TrimSpace(providerCfg.APIKey) == "" {
		return service.StreamRoute{}, apperrors.NewConfigurationError(MissingKeyMessage).
			WithDetail("provider " + name)
	}
	if modelName == "" {
		modelName = providerCfg.Model
	}
	if modelName == "" {
		modelName = f.config.Presets.Fast
	}

	streamer, err := f.get(ctx, name, providerCfg)
	if err != nil {
		return service.StreamRoute{}, err
	}
	return service.StreamRoute{Provider: name, Model: modelName, Streamer: streamer}, nil
}

func (f *Factory) split(model string) (provider, name string) {
	model = strings.TrimSpace(model)
	if i := strings.Index(model, ":"); i > 0 {
		if _, ok := f.config.Providers[model[:i]]; ok {
			return model[:i], model[i+1:]
		}
	}
	return f.config.DefaultProvider, model
}

func (f *Factory) get(ctx context.Context, name string, cfg config.ProviderConfig) (service.TextStreamer, error) {
	f.mu.RLock()
	s, ok := f.streamers[name]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	// 惰性加载，同名并发请求只创建一次
	v, err, _ := f.group.Do(name, func() (any, error) {
		f.mu.RLock()
		s, ok := f.streamers[name]
		f.mu.RUnlock()
		if ok {
			return s, nil
		}

		build, ok := f.builders[cfg.Kind]
		if !ok {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("llm provider %s has unsupported kind %q", name, cfg.Kind))
		}
		s, err := build(ctx, name, cfg)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfigurationError,
				fmt.Sprintf("failed to create llm client for %s", name))
		}

		f.mu.Lock()
		f.streamers[name] = s
		f.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(service.TextStreamer), nil
}
