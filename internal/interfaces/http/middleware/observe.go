package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
	"inkflow-ai-api/pkg/tracer"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
	// TraceIDHeader 追踪 ID 响应头
	TraceIDHeader = "X-Trace-ID"

	maxRequestIDLen = 64
)

// 探活与指标端点不产生 span，也不计入 HTTP 指标
var probePaths = map[string]struct{}{
	"/health":  {},
	"/live":    {},
	"/ready":   {},
	"/metrics": {},
}

func isProbe(path string) bool {
	_, ok := probePaths[path]
	return ok
}

// RequestID 注入请求 ID；客户端传入的 ID 不合法时重新生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r < 0x21 || r > 0x7e
	})
}

// Trace OpenTelemetry 追踪中间件，跳过探活端点
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !isProbe(r.URL.Path)
		}),
	)
}

// TraceContext 把 trace_id 写入 gin 与日志上下文
//
// 没有有效 span（追踪关闭或被过滤）时回退为请求 ID，响应体里的 trace_id 始终可用于检索日志。
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		traceID := c.GetString("request_id")

		if id := tracer.TraceID(ctx); id != "" {
			traceID = id
			spanID := trace.SpanFromContext(ctx).SpanContext().SpanID().String()
			c.Set("span_id", spanID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
		}

		if traceID != "" {
			c.Set("trace_id", traceID)
			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			c.Header(TraceIDHeader, traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Metrics Prometheus 指标采集中间件
//
// 未匹配路由统一记为 "unmatched"，避免任意路径撑爆标签基数；SSE 响应不记录响应大小。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if isProbe(path) {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		start := time.Now()

		if size := c.Request.ContentLength; size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(size))
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			return
		}
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
