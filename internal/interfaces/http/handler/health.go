package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/pkg/logger"
)

const readyTimeout = 2 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	checks  map[string]repository.HealthChecker
}

// NewHealthHandler 创建健康检查处理器；checks 为参与就绪判断的依赖
func NewHealthHandler(version string, checks map[string]repository.HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口
// 存储不可用时生成仍可进行（历史只保存在内存中），因此返回 degraded 而非 503
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	results := make(map[string]*readinessCheck, len(h.checks))
	var mu sync.Mutex
	var g errgroup.Group
	for name, checker := range h.checks {
		g.Go(func() error {
			check := probe(ctx, checker)
			mu.Lock()
			results[name] = check
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: results}
	for name, check := range results {
		if check.Status != "ok" {
			resp.Status = "degraded"
			logger.Warn(ctx, "readiness check degraded", "check", name, "error", check.Error)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, checker repository.HealthChecker) *readinessCheck {
	start := time.Now()
	err := checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "degraded"
		check.Error = err.Error()
	}
	return check
}

// Live 存活检查接口
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
