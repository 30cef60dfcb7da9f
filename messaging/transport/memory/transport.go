// Package memory 提供基于内存队列的消息传输实现
// 适用于单进程部署：购物车快照的后台保存队列即运行在此之上
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gocart/logging"
	"gocart/messaging"
)

// MemoryTransport 内存消息传输实现
//
// 特性:
//   - 基于内存队列的异步消息传输，Publish 永不阻塞
//   - Worker 池模式处理消息；单 Worker 时按发布顺序处理
//   - 并发安全
type MemoryTransport struct {
	handlers    map[string][]messaging.IMessageHandler
	queue       chan messaging.IMessage
	queueSize   int
	workerCount int
	running     bool
	closed      bool
	mutex       sync.RWMutex
	wg          sync.WaitGroup
	logger      logging.Logger

	dropped atomic.Int64
}

// Option 配置函数
type Option func(*MemoryTransport)

// WithLogger 设置日志实现
func WithLogger(logger logging.Logger) Option {
	return func(t *MemoryTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewMemoryTransport 创建内存传输实例
//
// 参数:
//   - queueSize: 队列大小（<=0 时使用默认 256）
//   - workerCount: Worker 数量（<=0 时使用默认 1）
func NewMemoryTransport(queueSize, workerCount int, opts ...Option) *MemoryTransport {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	return newMemoryTransport(queueSize, workerCount, opts...)
}

// NewMemoryTransportForTest 创建 0 worker 的传输实例，消息只入队不消费
func NewMemoryTransportForTest(queueSize int) *MemoryTransport {
	if queueSize <= 0 {
		queueSize = 256
	}
	return newMemoryTransport(queueSize, 0)
}

func newMemoryTransport(queueSize, workerCount int, opts ...Option) *MemoryTransport {
	t := &MemoryTransport{
		handlers:    make(map[string][]messaging.IMessageHandler),
		queue:       make(chan messaging.IMessage, queueSize),
		queueSize:   queueSize,
		workerCount: workerCount,
		logger:      logging.ComponentLogger("messaging.transport.memory"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Publish 发布消息到队列
//
// 队列满或传输未启动时立即返回错误，不等待
func (t *MemoryTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.running {
		return fmt.Errorf("memory transport is not running")
	}

	select {
	case t.queue <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		t.dropped.Add(1)
		return fmt.Errorf("message queue is full")
	}
}

// Dropped 返回因队列满而被拒绝的消息数
func (t *MemoryTransport) Dropped() int64 {
	return t.dropped.Load()
}

// Stats 获取统计信息
func (t *MemoryTransport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	handlerCount := 0
	messageTypes := make([]string, 0, len(t.handlers))
	for messageType, handlers := range t.handlers {
		messageTypes = append(messageTypes, messageType)
		handlerCount += len(handlers)
	}

	return messaging.TransportStats{
		Running:      t.running,
		HandlerCount: handlerCount,
		MessageTypes: messageTypes,
		QueueSize:    t.queueSize,
		QueueDepth:   len(t.queue),
		WorkerCount:  t.workerCount,
	}
}
