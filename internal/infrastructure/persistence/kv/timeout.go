package kv

import (
	"context"
	"time"

	"inkflow-ai-api/internal/domain/repository"
)

// TimeoutStore 为每次读写加上超时，避免远端存储卡住生成后的历史写入
type TimeoutStore struct {
	inner   repository.KVStoreCloser
	timeout time.Duration
}

var _ repository.KVStoreCloser = (*TimeoutStore)(nil)

// WithTimeout 包装存储；timeout <= 0 时原样返回
func WithTimeout(inner repository.KVStoreCloser, timeout time.Duration) repository.KVStoreCloser {
	if timeout <= 0 {
		return inner
	}
	return &TimeoutStore{inner: inner, timeout: timeout}
}

// Read 读取键对应的值
func (s *TimeoutStore) Read(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.Read(ctx, key)
}

// Write 写入键对应的值
func (s *TimeoutStore) Write(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.Write(ctx, key, value)
}

// HealthCheck 健康检查；底层不支持时视为健康
func (s *TimeoutStore) HealthCheck(ctx context.Context) error {
	hc, ok := s.inner.(repository.HealthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return hc.HealthCheck(ctx)
}

// Close 关闭底层存储
func (s *TimeoutStore) Close() error {
	return s.inner.Close()
}
