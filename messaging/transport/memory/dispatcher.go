package memory

import (
	"context"

	"gocart/logging"
	"gocart/messaging"
)

// dispatch 分发消息到精确匹配与通配符("*")处理器
//
// 异步分发，handler 错误不会传播给发布者，只记录日志
func (t *MemoryTransport) dispatch(ctx context.Context, message messaging.IMessage) {
	messageType := message.GetType()

	t.mutex.RLock()
	exact := t.handlers[messageType]
	wildcard := t.handlers["*"]
	handlers := make([]messaging.IMessageHandler, 0, len(exact)+len(wildcard))
	handlers = append(handlers, exact...)
	handlers = append(handlers, wildcard...)
	t.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("message_type", messageType),
				logging.String("message_id", message.GetID()),
				logging.String("handler", handler.Type()),
				logging.Error(err))
		}
	}
}
