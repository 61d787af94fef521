package generation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inkflow-ai-api/internal/domain/service"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
	"inkflow-ai-api/pkg/tracer"
)

// SnapshotReader 惰性、有限、不可重启的累积文本序列
//
// 每次 Recv 返回截至当前的完整文本；流结束后返回 io.EOF，出错后始终返回同一个错误。
type SnapshotReader struct {
	ctx       context.Context
	fragments service.FragmentReader
	span      trace.Span
	provider  string
	model     string
	start     time.Time

	acc       strings.Builder
	fragCount int
	err       error
	closeOnce sync.Once
}

// Recv 读取下一个累积快照，空片段会被跳过
func (r *SnapshotReader) Recv() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	for {
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			r.finish(ctxErr, "cancelled")
			return "", r.err
		}
		frag, err := r.fragments.Recv()
		if errors.Is(err, io.EOF) {
			r.finish(io.EOF, "success")
			return "", io.EOF
		}
		if err != nil {
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				r.finish(ctxErr, "cancelled")
				return "", r.err
			}
			r.finish(apperrors.NewProviderError(err), "error")
			return "", r.err
		}
		if frag == "" {
			continue
		}
		r.acc.WriteString(frag)
		r.fragCount++
		return r.acc.String(), nil
	}
}

// Text 返回当前累积的文本
func (r *SnapshotReader) Text() string {
	return r.acc.String()
}

// Close 释放底层流；未读完时记为取消
func (r *SnapshotReader) Close() {
	if r.err == nil {
		r.finish(context.Canceled, "cancelled")
	}
}

func (r *SnapshotReader) finish(err error, status string) {
	r.err = err
	r.closeOnce.Do(func() {
		r.fragments.Close()

		elapsed := time.Since(r.start)
		metrics.LLMCallTotal.WithLabelValues(r.provider, r.model, status).Inc()
		metrics.LLMCallDuration.WithLabelValues(r.provider, r.model).Observe(elapsed.Seconds())

		r.span.SetAttributes(
			attribute.Int("generation.fragments", r.fragCount),
			attribute.Int("generation.chars", r.acc.Len()),
			attribute.String("generation.status", status),
		)
		if status == "error" {
			tracer.RecordError(r.span, err)
			logger.Warn(r.ctx, "generation stream failed",
				"error", err,
				"fragments", r.fragCount,
				"duration_ms", elapsed.Milliseconds(),
			)
		} else {
			logger.Debug(r.ctx, "generation stream finished",
				"status", status,
				"fragments", r.fragCount,
				"duration_ms", elapsed.Milliseconds(),
			)
		}
		r.span.End()
	})
}
