package cart

import (
	"context"

	"gocart/errors"
)

type storeKey struct{}

// ErrNoStore 在未注入 Store 的上下文中访问购物车
var ErrNoStore = errors.NewError(errors.ErrCodeNotInitialized, "cart store must be used within an initialized scope")

// WithStore 将 Store 注入上下文
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext 取出注入的 Store，未注入时返回 ErrNoStore
func FromContext(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, ErrNoStore
	}
	store, ok := ctx.Value(storeKey{}).(*Store)
	if !ok || store == nil {
		return nil, ErrNoStore
	}
	return store, nil
}

// MustFromContext 同 FromContext，未注入时 panic
func MustFromContext(ctx context.Context) *Store {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
