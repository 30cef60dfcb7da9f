package messaging

import (
	"context"
)

// IMessageHandler 消息处理器接口
type IMessageHandler interface {
	// Handle 处理消息
	Handle(ctx context.Context, message IMessage) error

	// Type 返回处理器类型（用于日志和调试）
	Type() string
}

// HandlerFunc 函数式处理器
type HandlerFunc func(ctx context.Context, message IMessage) error

// FuncHandler 将 HandlerFunc 适配为 IMessageHandler
type FuncHandler struct {
	Name string
	Fn   HandlerFunc
}

// Handle 实现 IMessageHandler
func (h *FuncHandler) Handle(ctx context.Context, message IMessage) error {
	return h.Fn(ctx, message)
}

// Type 实现 IMessageHandler
func (h *FuncHandler) Type() string {
	return h.Name
}
