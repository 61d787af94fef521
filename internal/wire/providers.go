package wire

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"inkflow-ai-api/internal/application/catalog"
	"inkflow-ai-api/internal/application/generation"
	"inkflow-ai-api/internal/application/history"
	"inkflow-ai-api/internal/application/session"
	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/infrastructure/clipboard"
	"inkflow-ai-api/internal/infrastructure/llm"
	"inkflow-ai-api/internal/infrastructure/persistence/kv"
	"inkflow-ai-api/internal/infrastructure/persistence/redis"
	"inkflow-ai-api/internal/infrastructure/persistence/sqldb"
	"inkflow-ai-api/internal/interfaces/http/handler"
	"inkflow-ai-api/internal/interfaces/http/middleware"
	"inkflow-ai-api/pkg/logger"
)

// Session CLI 与 HTTP 共用的会话依赖
type Session struct {
	Controller *session.Controller
	Catalog    *catalog.Catalog
	History    *history.Store
	Storage    repository.KVStoreCloser
}

// ProvideKVStore 按 storage.driver 打开历史记录的存储介质
func ProvideKVStore(ctx context.Context, cfg *config.Config) (repository.KVStoreCloser, func(), error) {
	store, err := openKVStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store = kv.WithTimeout(store, cfg.Storage.Timeout)
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn(ctx, "failed to close storage", "driver", cfg.Storage.Driver, "error", err.Error())
		}
	}
	logger.Debug(ctx, "storage opened", "driver", cfg.Storage.Driver)
	return store, cleanup, nil
}

func openKVStore(ctx context.Context, cfg *config.Config) (repository.KVStoreCloser, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "file":
		return kv.NewFileStore(afero.NewOsFs(), cfg.Storage.File.Dir)
	case "sqlite":
		client, err := sqldb.NewSQLiteClient(&cfg.Storage.SQLite)
		if err != nil {
			return nil, err
		}
		return newSQLKVStore(ctx, client, cfg.Storage.KeyPrefix)
	case "postgres":
		client, err := sqldb.NewPostgresClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		return newSQLKVStore(ctx, client, cfg.Storage.KeyPrefix)
	case "redis":
		client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
		if err != nil {
			return nil, err
		}
		return redis.NewKVStore(client, cfg.Storage.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Storage.Driver)
	}
}

func newSQLKVStore(ctx context.Context, client *sqldb.Client, prefix string) (repository.KVStoreCloser, error) {
	store, err := sqldb.NewKVStore(ctx, client, prefix)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// ProvideHistoryStore 提供历史记录存储
func ProvideHistoryStore(store repository.KVStoreCloser, cfg *config.Config) *history.Store {
	return history.NewStore(store, cfg.Storage.HistoryKey)
}

// ProvideGenerationClient 提供生成客户端
func ProvideGenerationClient(resolver *llm.Factory, cfg *config.Config) *generation.Client {
	return generation.NewClient(resolver, float32(cfg.LLM.Temperature))
}

// ProvideClipboard 剪贴板不可用时返回 nil，复制操作会报告不可用
func ProvideClipboard(ctx context.Context, cfg *config.Config) session.Clipboard {
	if !cfg.Clipboard.Enabled {
		return nil
	}
	cb, err := clipboard.NewSystem()
	if err != nil {
		logger.Warn(ctx, "clipboard disabled", "error", err.Error())
		return nil
	}
	return cb
}

// ProvideSessionController 提供会话控制器
func ProvideSessionController(
	ctx context.Context,
	cfg *config.Config,
	cat *catalog.Catalog,
	client *generation.Client,
	store *history.Store,
	cb session.Clipboard,
) *session.Controller {
	opts := []session.Option{
		session.WithModelPresets(session.ModelPresets{
			Fast: cfg.LLM.Presets.Fast,
			Pro:  cfg.LLM.Presets.Pro,
		}),
	}
	if cb != nil {
		opts = append(opts, session.WithClipboard(cb))
	}
	return session.NewController(ctx, cat, client, store, opts...)
}

// ProvideRateLimiter 仅在启用限流时连接 Redis；连接失败时不限流
func ProvideRateLimiter(ctx context.Context, cfg *config.Config) (middleware.RateLimiter, func()) {
	if !cfg.Security.RateLimit.Enabled {
		return nil, func() {}
	}
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limiting disabled", "error", err.Error())
		return nil, func() {}
	}
	return redis.NewRateLimiter(client), func() { _ = client.Close() }
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, store repository.KVStoreCloser) *handler.HealthHandler {
	checks := map[string]repository.HealthChecker{}
	if hc, ok := store.(repository.HealthChecker); ok {
		checks["storage"] = hc
	}
	return handler.NewHealthHandler(cfg.App.Version, checks)
}
