package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inkflow-ai-api/internal/infrastructure/persistence/redis"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 限流中间件；按客户端 IP 与路由计数，窗口为一秒
//
// 限流器出错时放行：本机客户端不应因 Redis 故障而无法生成。
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(c.ClientIP(), path)

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerSecond, time.Second)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.Abort()
			c.Header("Retry-After", "1")
			dto.ErrorWithDetail(c, http.StatusTooManyRequests, "too many generation requests, try again shortly", &dto.ErrorDetail{
				ErrorCode: string(errors.CodeTooManyRequests),
			})
			return
		}

		c.Next()
	}
}
