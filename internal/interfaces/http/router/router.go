// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/interfaces/http/handler"
	"inkflow-ai-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health   *handler.HealthHandler
	Template *handler.TemplateHandler
	Session  *handler.SessionHandler
	History  *handler.HistoryHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  middleware.RateLimiter
}

// New 创建新的路由器；limiter 为 nil 时不限流
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件；关闭追踪时 trace_id 回退为请求 ID
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
	}
	r.engine.Use(middleware.TraceContext())

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	{
		v1.GET("/templates", h.Template.ListTemplates)
		v1.GET("/templates/:id", h.Template.GetTemplate)
		v1.GET("/models", h.Template.ListModels)

		sess := v1.Group("/session")
		{
			sess.GET("", h.Session.GetSession)
			sess.PUT("/template", h.Session.SelectTemplate)
			sess.PUT("/model", h.Session.SelectModel)
			sess.PATCH("/fields", h.Session.UpdateFields)
			sess.DELETE("/error", h.Session.DismissError)
			sess.POST("/copy", h.Session.CopyOutput)

			// 只对会触发模型调用的端点限流
			sess.POST("/generate", middleware.RateLimit(middleware.RateLimitConfig{
				Enabled:           r.cfg.Security.RateLimit.Enabled,
				RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
			}, r.limiter), h.Session.Generate)
		}

		history := v1.Group("/history")
		{
			history.GET("", h.History.ListHistory)
			history.DELETE("", h.History.ClearHistory)
			history.POST("/:id/load", h.History.LoadHistoryItem)
			history.DELETE("/:id", h.History.DeleteHistoryItem)
		}
	}
}
