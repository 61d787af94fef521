// Package history 在单键 KV 存储上维护生成历史
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
)

// DefaultKey 默认存储键
const DefaultKey = "inkflow_history"

// Store 历史记录存储
//
// 整个有序列表序列化为一个 JSON 数组写在同一个键下，最新的在最前。
// 读取失败按空历史处理；写入失败不影响已持久化的数据。
type Store struct {
	kv  repository.KVStore
	key string
	mu  sync.Mutex
}

var _ repository.HistoryRepository = (*Store)(nil)

// NewStore 创建历史记录存储；key 为空时使用 DefaultKey
func NewStore(kv repository.KVStore, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Append 在最前面插入一条记录，返回插入后的列表
//
// 写入失败时仍返回插入后的列表，调用方可继续使用内存副本。
func (s *Store) Append(ctx context.Context, record entity.HistoryRecord) ([]entity.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	next := make([]entity.HistoryRecord, 0, len(current)+1)
	next = append(next, record)
	next = append(next, current...)
	return next, s.save(ctx, next)
}

// List 按时间倒序返回全部记录
func (s *Store) List(ctx context.Context) []entity.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get 根据 ID 获取记录
func (s *Store) Get(ctx context.Context, id string) (entity.HistoryRecord, error) {
	for _, r := range s.List(ctx) {
		if r.ID == id {
			return r, nil
		}
	}
	return entity.HistoryRecord{}, apperrors.New(apperrors.CodeHistoryNotFound, "history record not found").
		WithDetail(fmt.Sprintf("history record %q does not exist", id))
}

// Remove 删除指定记录；ID 不存在时不写存储
func (s *Store) Remove(ctx context.Context, id string) ([]entity.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	next := make([]entity.HistoryRecord, 0, len(current))
	for _, r := range current {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(current) {
		return current, nil
	}
	return next, s.save(ctx, next)
}

// Clear 清空全部记录
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, []entity.HistoryRecord{})
}

func (s *Store) load(ctx context.Context) []entity.HistoryRecord {
	raw, ok, err := s.kv.Read(ctx, s.key)
	if err != nil {
		s.degrade(ctx, "failed to read history, treating as empty", err)
		return []entity.HistoryRecord{}
	}
	if !ok || raw == "" {
		return []entity.HistoryRecord{}
	}

	var records []entity.HistoryRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.degrade(ctx, "failed to decode history, treating as empty", err)
		return []entity.HistoryRecord{}
	}
	if records == nil {
		records = []entity.HistoryRecord{}
	}
	return records
}

func (s *Store) save(ctx context.Context, records []entity.HistoryRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return apperrors.NewStorageError(err, "failed to encode history")
	}
	if err := s.kv.Write(ctx, s.key, string(raw)); err != nil {
		metrics.HistoryWriteFailures.Inc()
		logger.Warn(ctx, "failed to write history", "error", err, "key", s.key, "records", len(records))
		return apperrors.NewStorageError(err, "failed to write history")
	}
	metrics.HistoryRecords.Set(float64(len(records)))
	return nil
}

func (s *Store) degrade(ctx context.Context, msg string, err error) {
	metrics.HistoryLoadFailures.Inc()
	logger.Warn(ctx, msg, "error", err, "key", s.key)
}
