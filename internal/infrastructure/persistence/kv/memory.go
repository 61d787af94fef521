// Package kv 提供本地键值存储实现
package kv

import (
	"context"
	"sync"

	"inkflow-ai-api/internal/domain/repository"
)

// MemoryStore 进程内 KV 存储，进程退出后数据丢失
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ repository.KVStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存 KV 存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Read 读取键对应的值
func (s *MemoryStore) Read(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Write 写入键对应的值
func (s *MemoryStore) Write(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// HealthCheck 内存存储始终可用
func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

// Close 无需释放资源
func (s *MemoryStore) Close() error {
	return nil
}
