package persistence

import (
	"context"

	"gocart/cart"
	"gocart/errors"
)

// Loader 从 Storage 读取购物车快照，实现 cart.SnapshotLoader
type Loader struct {
	storage Storage
}

// NewLoader 创建加载器
func NewLoader(storage Storage) *Loader {
	return &Loader{storage: storage}
}

// Load 读取并解析 key 对应的商品列表；键不存在时返回 (nil, false, nil)
func (l *Loader) Load(ctx context.Context, key string) ([]cart.Item, bool, error) {
	data, err := l.storage.Get(ctx, key)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.WrapError(err, errors.ErrCodeDatabase, "读取购物车快照失败")
	}

	items, err := cart.DecodeItems(data)
	if err != nil {
		return nil, false, err
	}
	return items, true, nil
}

var _ cart.SnapshotLoader = (*Loader)(nil)
