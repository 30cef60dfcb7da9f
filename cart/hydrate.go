package cart

import (
	"context"

	"gocart/errors"
	"gocart/logging"
)

// Hydrate 在后台加载已持久化的购物车，只生效一次
//
// 加载期间的变更立即作用于内存状态，但推迟到加载结束后才持久化。
// 加载成功后状态变为 LOAD_CART(快照)，再按顺序重放这些变更；
// 未找到或加载失败时保留当前状态。只要有推迟的变更，结束时写回一次合并结果。
func (s *Store) Hydrate(ctx context.Context, loader SnapshotLoader) {
	s.mu.Lock()
	if s.hydrateStarted {
		s.mu.Unlock()
		s.logger.Warn(ctx, "购物车已在加载或已加载，忽略重复调用")
		return
	}
	s.hydrateStarted = true
	s.hydrating = true
	s.mu.Unlock()

	go s.hydrate(ctx, loader)
}

// Loaded 加载结束（无论成功与否）时关闭
func (s *Store) Loaded() <-chan struct{} {
	return s.loaded
}

// WaitLoaded 等待后台加载结束
//
// 未调用过 Hydrate 时返回 ErrCodeNotInitialized 错误。
func (s *Store) WaitLoaded(ctx context.Context) error {
	s.mu.RLock()
	started := s.hydrateStarted
	s.mu.RUnlock()
	if !started {
		return errors.NewError(errors.ErrCodeNotInitialized, "购物车未开始加载")
	}

	select {
	case <-s.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) hydrate(ctx context.Context, loader SnapshotLoader) {
	defer close(s.loaded)

	if loader == nil {
		s.finishHydration(ctx, nil, false)
		return
	}

	items, found, err := loader.Load(ctx, s.key)
	if err != nil {
		_ = errors.WrapWithLog(ctx, s.logger, err, errors.GetErrorCode(err),
			"加载购物车失败，保留当前状态",
			logging.String("key", s.key))
		s.finishHydration(ctx, nil, false)
		return
	}
	s.finishHydration(ctx, items, found)
}

func (s *Store) finishHydration(ctx context.Context, items []Item, found bool) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.hydrating = false

	if !found && len(pending) == 0 {
		s.mu.Unlock()
		return
	}

	if found {
		next := Reduce(EmptyState(), LoadCart{Items: items})
		for _, action := range pending {
			next = Reduce(next, action)
		}
		s.state = next
		s.sequence++
	}
	// 加载期间的变更尚未写入存储，无论加载结果如何都写回一次
	if len(pending) > 0 {
		s.publishLocked(ActionLoadCart)
	}
	state, observers := s.state.Clone(), s.observersLocked()
	s.mu.Unlock()

	if found {
		s.logger.Info(ctx, "购物车加载完成",
			logging.String("key", s.key),
			logging.Int("items", len(state.Items)),
			logging.Int("replayed", len(pending)))
		notify(observers, state)
	}
}
