// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
)

// Recovery Panic 恢复中间件
//
// SSE 响应一旦开始写出就无法再改状态码，此时只中断连接，客户端会因缺少 done 事件而感知失败。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"streaming", c.Writer.Written(),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.Abort()
			dto.ErrorWithDetail(c, http.StatusInternalServerError, "internal server error", &dto.ErrorDetail{
				ErrorCode: string(errors.CodeInternalError),
			})
		}()

		c.Next()
	}
}
