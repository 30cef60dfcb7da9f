package memory

import (
	"fmt"

	"gocart/messaging"
)

// Subscribe 订阅消息处理器，支持 "*" 通配符
func (t *MemoryTransport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.handlers[messageType] = append(t.handlers[messageType], handler)
	return nil
}

// Unsubscribe 取消订阅消息处理器
func (t *MemoryTransport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	handlers, ok := t.handlers[messageType]
	if !ok {
		return fmt.Errorf("no handlers for message type %s", messageType)
	}

	for i, h := range handlers {
		if h == handler {
			t.handlers[messageType] = append(handlers[:i:i], handlers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("handler not found for message type %s", messageType)
}
