package entity

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord 一次完成生成的持久化快照，创建后不再修改
//
// JSON 字段名与 Web 版客户端写入的历史数据保持一致，Timestamp 为毫秒时间戳。
type HistoryRecord struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
}

// NewHistoryRecord 创建历史记录
func NewHistoryRecord(templateID, title, content string, at time.Time) HistoryRecord {
	return HistoryRecord{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Title:      title,
		Content:    content,
		Timestamp:  at.UnixMilli(),
	}
}

// CreatedAt 返回记录的创建时间
func (r HistoryRecord) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}
