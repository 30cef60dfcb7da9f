package memory

import (
	"context"
	"fmt"
	"time"
)

// Start 启动 Worker 池开始处理消息队列
//
// ctx 取消后 Worker 退出，队列中剩余消息不再处理
func (t *MemoryTransport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return fmt.Errorf("memory transport is closed")
	}
	if t.running {
		return fmt.Errorf("memory transport is already running")
	}
	t.running = true

	for i := 0; i < t.workerCount; i++ {
		t.wg.Add(1)
		go t.worker(ctx)
	}
	return nil
}

// Close 关闭传输层并等待队列中的消息处理完毕
func (t *MemoryTransport) Close() error {
	return t.CloseWithContext(context.Background())
}

// CloseWithTimeout 带超时的关闭
func (t *MemoryTransport) CloseWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.CloseWithContext(ctx)
}

// CloseWithContext 关闭队列并等待 Worker 排空
//
// ctx 到期时返回 ctx.Err()，Worker 仍会在后台继续排空队列
func (t *MemoryTransport) CloseWithContext(ctx context.Context) error {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return fmt.Errorf("memory transport is not running")
	}
	t.running = false
	t.closed = true
	// Publish 持有读锁发送，这里持写锁关闭不会与发送竞争
	close(t.queue)
	t.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait 阻塞直到所有 Worker 退出
func (t *MemoryTransport) Wait() {
	t.wg.Wait()
}

// worker 从队列中取出消息并分发给订阅的处理器
func (t *MemoryTransport) worker(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case message, ok := <-t.queue:
			if !ok {
				return
			}
			t.dispatch(ctx, message)

		case <-ctx.Done():
			return
		}
	}
}
