// Package generationtest 提供可编排的生成服务替身，供测试使用
package generationtest

import (
	"context"
	"io"
	"sync"

	"inkflow-ai-api/internal/domain/service"
	apperrors "inkflow-ai-api/pkg/errors"
)

// Step 一次 Recv 的结果；Err 非空时以该错误结束流
type Step struct {
	Text string
	Err  error
	// Wait 非空时 Recv 会阻塞直到该通道关闭或 context 取消
	Wait <-chan struct{}
}

// Streamer 按脚本返回片段的 TextStreamer
type Streamer struct {
	mu       sync.Mutex
	script   []Step
	openErr  error
	requests []service.StreamTextRequest
	closed   int
}

// NewStreamer 创建按给定片段依次返回并正常结束的 Streamer
func NewStreamer(fragments ...string) *Streamer {
	steps := make([]Step, 0, len(fragments))
	for _, f := range fragments {
		steps = append(steps, Step{Text: f})
	}
	return &Streamer{script: steps}
}

// NewScriptedStreamer 创建按步骤执行的 Streamer
func NewScriptedStreamer(steps ...Step) *Streamer {
	return &Streamer{script: steps}
}

// FailOpen 让 StreamText 直接返回错误
func (s *Streamer) FailOpen(err error) *Streamer {
	s.openErr = err
	return s
}

// StreamText 实现 service.TextStreamer
func (s *Streamer) StreamText(ctx context.Context, req service.StreamTextRequest) (service.FragmentReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.openErr != nil {
		return nil, s.openErr
	}
	steps := make([]Step, len(s.script))
	copy(steps, s.script)
	return &reader{ctx: ctx, steps: steps, owner: s}, nil
}

// Requests 返回收到的全部请求
func (s *Streamer) Requests() []service.StreamTextRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.StreamTextRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Closed 返回被关闭的读取器数量
func (s *Streamer) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type reader struct {
	ctx   context.Context
	steps []Step
	pos   int
	once  sync.Once
	owner *Streamer
}

func (r *reader) Recv() (string, error) {
	if r.pos >= len(r.steps) {
		return "", io.EOF
	}
	step := r.steps[r.pos]
	r.pos++
	if step.Wait != nil {
		select {
		case <-step.Wait:
		case <-r.ctx.Done():
			return "", r.ctx.Err()
		}
	}
	if step.Err != nil {
		r.pos = len(r.steps)
		return "", step.Err
	}
	return step.Text, nil
}

func (r *reader) Close() {
	r.once.Do(func() {
		r.owner.mu.Lock()
		r.owner.closed++
		r.owner.mu.Unlock()
	})
}

// Resolver 固定路由到一个 Streamer 的 StreamerResolver
type Resolver struct {
	Streamer service.TextStreamer
	Provider string
	// Missing 为 true 时模拟凭证缺失
	Missing bool

	mu     sync.Mutex
	models []string
}

// NewResolver 创建路由到给定 Streamer 的 Resolver
func NewResolver(s service.TextStreamer) *Resolver {
	return &Resolver{Streamer: s, Provider: "fake"}
}

// Resolve 实现 service.StreamerResolver
func (r *Resolver) Resolve(_ context.Context, model string) (service.StreamRoute, error) {
	r.mu.Lock()
	r.models = append(r.models, model)
	r.mu.Unlock()
	if r.Missing {
		return service.StreamRoute{}, apperrors.NewConfigurationError("API Key is missing")
	}
	return service.StreamRoute{Provider: r.Provider, Model: model, Streamer: r.Streamer}, nil
}

// Models 返回请求过的模型名
func (r *Resolver) Models() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.models))
	copy(out, r.models)
	return out
}
