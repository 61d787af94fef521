package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inkflow-ai-api/internal/domain/repository"
)

// kvEntry 一行一个键；历史记录整体作为一个 JSON 值保存
type kvEntry struct {
	Key       string    `gorm:"column:key;type:varchar(255);primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// KVStore 基于 kv_entries 表的键值存储
type KVStore struct {
	client *Client
	prefix string
}

var _ repository.KVStoreCloser = (*KVStore)(nil)

// NewKVStore 创建 KV 存储并确保表存在
func NewKVStore(ctx context.Context, client *Client, prefix string) (*KVStore, error) {
	if err := client.db.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &KVStore{client: client, prefix: prefix}, nil
}

// Read 读取键对应的值
func (s *KVStore) Read(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "kv.Read")
	defer span.End()

	var entry kvEntry
	err := s.client.db.WithContext(ctx).Where("key = ?", s.key(key)).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("sql read %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Write 以单条 upsert 覆盖写入
func (s *KVStore) Write(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "kv.Write")
	defer span.End()

	entry := kvEntry{Key: s.key(key), Value: value, UpdatedAt: time.Now()}
	err := s.client.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("sql write %s: %w", key, err)
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
