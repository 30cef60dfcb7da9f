// Package persistence 负责购物车快照的读取与写入
//
// Store 每次变更发布 cart.changed 消息，SaveHandler 订阅后写入 Storage；
// 启动时 Loader 读取同一个键完成一次性加载。两条路径的失败都只记录日志。
package persistence

import (
	"context"

	"gocart/errors"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.NewError(errors.ErrCodeNotFound, "storage key not found")

// Storage 字符串键到字节值的持久化后端
type Storage interface {
	// Get 读取键值，不存在时返回 ErrNotFound（errors.IsNotFound 为真）
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 覆盖写入
	Set(ctx context.Context, key string, value []byte) error

	// Delete 删除键，不存在时不报错
	Delete(ctx context.Context, key string) error

	Close() error
}
