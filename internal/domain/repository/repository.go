// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// KVStore 本地持久化的键值存储
//
// 一次 Write 要么完整写入要么保持原值；Read 在键不存在时返回 ok=false 且 err=nil。
type KVStore interface {
	// Read 读取键对应的值
	Read(ctx context.Context, key string) (value string, ok bool, err error)

	// Write 写入键对应的值
	Write(ctx context.Context, key, value string) error
}

// HealthChecker 可选的存储健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// KVStoreCloser 持有外部连接的 KV 存储
type KVStoreCloser interface {
	KVStore
	Close() error
}
