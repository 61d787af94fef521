package repository

import (
	"context"

	"inkflow-ai-api/internal/domain/entity"
)

// HistoryRepository 历史记录仓储接口
type HistoryRepository interface {
	// Append 在最前面插入一条记录
	Append(ctx context.Context, record entity.HistoryRecord) ([]entity.HistoryRecord, error)

	// List 按时间倒序返回全部记录
	List(ctx context.Context) []entity.HistoryRecord

	// Get 根据 ID 获取记录
	Get(ctx context.Context, id string) (entity.HistoryRecord, error)

	// Remove 删除记录；ID 不存在时为空操作
	Remove(ctx context.Context, id string) ([]entity.HistoryRecord, error)

	// Clear 清空全部记录
	Clear(ctx context.Context) error
}
