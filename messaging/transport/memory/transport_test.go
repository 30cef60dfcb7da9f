package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocart/logging"
	msg "gocart/messaging"
)

type testHandler struct{ count *int32 }

func (h testHandler) Handle(ctx context.Context, m msg.IMessage) error {
	atomic.AddInt32(h.count, 1)
	return nil
}
func (h testHandler) Type() string { return "testHandler" }

// 阻塞处理器用于测试关闭超时
type blockingHandler struct{ ch chan struct{} }

func (h blockingHandler) Handle(ctx context.Context, m msg.IMessage) error {
	<-h.ch
	return nil
}
func (h blockingHandler) Type() string { return "blockingHandler" }

func newTransport(queueSize, workers int) *MemoryTransport {
	return NewMemoryTransport(queueSize, workers, WithLogger(logging.NewNoopLogger()))
}

func TestMemoryTransport_PublishFlow(t *testing.T) {
	tpt := newTransport(16, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tpt.Start(ctx))

	var cnt int32
	require.NoError(t, tpt.Subscribe("test", testHandler{count: &cnt}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "test"}))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cnt) == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, tpt.Close())
}

func TestMemoryTransport_CloseDrainsQueue(t *testing.T) {
	tpt := newTransport(16, 1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	var cnt int32
	require.NoError(t, tpt.Subscribe("test", testHandler{count: &cnt}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "test"}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m2", Type: "test"}))

	require.NoError(t, tpt.Close())
	assert.Equal(t, int32(2), atomic.LoadInt32(&cnt))

	// 关闭后不可再次发布或启动
	assert.Error(t, tpt.Publish(ctx, &msg.Message{ID: "m3", Type: "test"}))
	assert.Error(t, tpt.Start(ctx))
	assert.Error(t, tpt.Close())
}

func TestMemoryTransport_SingleWorkerPreservesOrder(t *testing.T) {
	tpt := newTransport(64, 1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	var (
		mu  sync.Mutex
		got []string
	)
	require.NoError(t, tpt.Subscribe("*", &msg.FuncHandler{Name: "collect", Fn: func(ctx context.Context, m msg.IMessage) error {
		mu.Lock()
		got = append(got, m.GetID())
		mu.Unlock()
		return nil
	}}))

	want := []string{"a", "b", "c", "d", "e"}
	for _, id := range want {
		require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: id, Type: "any"}))
	}
	require.NoError(t, tpt.Close())

	assert.Equal(t, want, got)
}

func TestMemoryTransport_QueueFull(t *testing.T) {
	tpt := NewMemoryTransportForTest(1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "none"}))
	err := tpt.Publish(ctx, &msg.Message{ID: "m2", Type: "none"})
	require.Error(t, err)
	assert.Equal(t, int64(1), tpt.Dropped())
	assert.Equal(t, 1, tpt.Stats().QueueDepth)
}

func TestMemoryTransport_HandlerErrorDoesNotStopOthers(t *testing.T) {
	tpt := newTransport(4, 1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	var cnt int32
	require.NoError(t, tpt.Subscribe("t", &msg.FuncHandler{Name: "fail", Fn: func(ctx context.Context, m msg.IMessage) error {
		return errors.New("boom")
	}}))
	require.NoError(t, tpt.Subscribe("t", testHandler{count: &cnt}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "t"}))
	require.NoError(t, tpt.Close())

	assert.Equal(t, int32(1), atomic.LoadInt32(&cnt))
}

func TestMemoryTransport_CloseWithTimeout(t *testing.T) {
	tpt := newTransport(4, 1)
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	blockCh := make(chan struct{})
	defer close(blockCh)

	require.NoError(t, tpt.Subscribe("block", blockingHandler{ch: blockCh}))
	require.NoError(t, tpt.Publish(ctx, &msg.Message{ID: "m1", Type: "block"}))

	err := tpt.CloseWithTimeout(10 * time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryTransport_Unsubscribe(t *testing.T) {
	tpt := newTransport(4, 1)
	h := &msg.FuncHandler{Name: "h", Fn: func(ctx context.Context, m msg.IMessage) error { return nil }}

	require.NoError(t, tpt.Subscribe("t", h))
	assert.Equal(t, 1, tpt.Stats().HandlerCount)
	require.NoError(t, tpt.Unsubscribe("t", h))
	assert.Equal(t, 0, tpt.Stats().HandlerCount)

	assert.Error(t, tpt.Unsubscribe("t", h))
	assert.Error(t, tpt.Unsubscribe("missing", h))
	assert.Error(t, tpt.Subscribe("t", nil))
}

func TestMemoryTransport_WaitAfterCloseTimeout(t *testing.T) {
	tpt := newTransport(4, 1)
	require.NoError(t, tpt.Start(context.Background()))

	block := make(chan struct{})
	require.NoError(t, tpt.Subscribe("test", blockingHandler{ch: block}))
	require.NoError(t, tpt.Publish(context.Background(), &msg.Message{ID: "m1", Type: "test"}))

	require.Error(t, tpt.CloseWithTimeout(10*time.Millisecond))

	waited := make(chan struct{})
	go func() {
		tpt.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while handler still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(block)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after handler finished")
	}
}
