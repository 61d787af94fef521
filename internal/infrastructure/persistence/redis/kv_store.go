package redis

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inkflow-ai-api/internal/domain/repository"
)

// KVStore 以 Redis 字符串保存键值，SET 本身是原子的
type KVStore struct {
	client *Client
	prefix string
}

var _ repository.KVStoreCloser = (*KVStore)(nil)

// NewKVStore 创建 Redis KV 存储；prefix 非空时键写为 "<prefix>:<key>"
func NewKVStore(client *Client, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

// Read 读取键对应的值
func (s *KVStore) Read(ctx context.Context, key string) (string, bool, error) {
	k := s.key(key)
	ctx, span := tracer.Start(ctx, "kv.redis.Read", trace.WithAttributes(attribute.String("kv.key", k)))
	defer span.End()

	v, err := s.client.rdb.Get(ctx, k).Result()
	if IsNil(err) {
		span.SetAttributes(attribute.Bool("kv.found", false))
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("redis read %s: %w", key, err)
	}
	span.SetAttributes(attribute.Bool("kv.found", true), attribute.Int("kv.bytes", len(v)))
	return v, true, nil
}

// Write 写入键对应的值，不过期
func (s *KVStore) Write(ctx context.Context, key, value string) error {
	k := s.key(key)
	ctx, span := tracer.Start(ctx, "kv.redis.Write", trace.WithAttributes(
		attribute.String("kv.key", k),
		attribute.Int("kv.bytes", len(value)),
	))
	defer span.End()

	if err := s.client.rdb.Set(ctx, k, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis write %s: %w", key, err)
	}
	return nil
}

// HealthCheck 健康检查
func (s *KVStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

// Close 关闭底层连接
func (s *KVStore) Close() error {
	return s.client.Close()
}

func (s *KVStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
