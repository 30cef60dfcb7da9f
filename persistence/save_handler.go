package persistence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gocart/cart"
	"gocart/errors"
	"gocart/logging"
	"gocart/messaging"
)

// SaveStats 保存统计
type SaveStats struct {
	Saved   uint64 `json:"saved"`
	Failed  uint64 `json:"failed"`
	Skipped uint64 `json:"skipped"`
}

// SaveHandler 订阅 cart.changed，把快照写入 Storage
//
// 失败只记录日志并计数，不重试也不返回给传输层。写入按键串行，
// 序号不大于已写入序号的快照视为过期并跳过。
type SaveHandler struct {
	storage Storage
	logger  logging.Logger

	mu      sync.Mutex
	written map[string]uint64

	saved   atomic.Uint64
	failed  atomic.Uint64
	skipped atomic.Uint64
}

// NewSaveHandler 创建保存处理器
func NewSaveHandler(storage Storage, logger logging.Logger) *SaveHandler {
	if logger == nil {
		logger = logging.ComponentLogger("persistence.save")
	}
	return &SaveHandler{
		storage: storage,
		logger:  logger,
		written: make(map[string]uint64),
	}
}

// Type 实现 messaging.IMessageHandler
func (h *SaveHandler) Type() string {
	return "persistence.save"
}

// Handle 实现 messaging.IMessageHandler
func (h *SaveHandler) Handle(ctx context.Context, message messaging.IMessage) error {
	snapshot, err := snapshotFrom(message)
	if err != nil {
		h.failed.Add(1)
		_ = errors.WrapWithLog(ctx, h.logger, err, errors.ErrCodeInvalidInput, "忽略无法识别的购物车消息",
			logging.String("message_id", message.GetID()))
		return nil
	}

	data, err := cart.EncodeItems(snapshot.Items)
	if err != nil {
		h.failed.Add(1)
		_ = errors.WrapWithLog(ctx, h.logger, err, errors.ErrCodeInternal, "序列化购物车失败",
			logging.String("key", snapshot.Key))
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.written[snapshot.Key]; ok && snapshot.Sequence <= last {
		h.skipped.Add(1)
		h.logger.Debug(ctx, "跳过过期快照",
			logging.String("key", snapshot.Key),
			logging.Uint64("sequence", snapshot.Sequence),
			logging.Uint64("written", last))
		return nil
	}

	if err := h.storage.Set(ctx, snapshot.Key, data); err != nil {
		h.failed.Add(1)
		_ = errors.WrapStorageError(ctx, h.logger, err, "save "+snapshot.Key)
		return nil
	}

	h.written[snapshot.Key] = snapshot.Sequence
	h.saved.Add(1)
	h.logger.Debug(ctx, "购物车已保存",
		logging.String("key", snapshot.Key),
		logging.String("action", string(snapshot.Action)),
		logging.Uint64("sequence", snapshot.Sequence),
		logging.Int("items", len(snapshot.Items)))
	return nil
}

// Stats 返回保存统计
func (h *SaveHandler) Stats() SaveStats {
	return SaveStats{
		Saved:   h.saved.Load(),
		Failed:  h.failed.Load(),
		Skipped: h.skipped.Load(),
	}
}

func snapshotFrom(message messaging.IMessage) (cart.Snapshot, error) {
	switch p := message.GetPayload().(type) {
	case cart.Snapshot:
		return p, nil
	case *cart.Snapshot:
		if p != nil {
			return *p, nil
		}
	}
	return cart.Snapshot{}, fmt.Errorf("unexpected payload %T for %s", message.GetPayload(), message.GetType())
}

var _ messaging.IMessageHandler = (*SaveHandler)(nil)
