//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"inkflow-ai-api/internal/application/catalog"
	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/infrastructure/llm"
	"inkflow-ai-api/internal/interfaces/http/handler"
	"inkflow-ai-api/internal/interfaces/http/router"
)

// InitializeSession 初始化会话（CLI 使用）
func InitializeSession(ctx context.Context, cfg *config.Config) (*Session, func(), error) {
	wire.Build(
		SessionSet,
		wire.Struct(new(Session), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		SessionSet,
		RouterSet,
	)
	return nil, nil, nil
}

// SessionSet 会话及其依赖
var SessionSet = wire.NewSet(
	ProvideKVStore,
	ProvideHistoryStore,
	catalog.Builtin,
	llm.NewFactory,
	ProvideGenerationClient,
	ProvideClipboard,
	ProvideSessionController,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideRateLimiter,
	ProvideHealthHandler,
	wire.Bind(new(handler.TemplateCatalog), new(*catalog.Catalog)),
	handler.NewTemplateHandler,
	handler.NewSessionHandler,
	handler.NewHistoryHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
