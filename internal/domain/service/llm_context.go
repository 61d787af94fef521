package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyTemplate llmCtxKey = "llm_template"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

// WithTemplateID 在 context 中记录本次调用所属的模板，供回调打标签
func WithTemplateID(ctx context.Context, templateID string) context.Context {
	if ctx == nil {
		return nil
	}
	t := strings.TrimSpace(templateID)
	if t == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyTemplate, t)
}

// WithProvider 在 context 中记录提供商名称
func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

func WithTemplateProvider(ctx context.Context, templateID, provider string) context.Context {
	return WithProvider(WithTemplateID(ctx, templateID), provider)
}

func TemplateIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyTemplate)
}

func ProviderFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyProvider)
}

func stringFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
