package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocart/errors"
	"gocart/logging"
)

// setupTestRedis 启动 miniredis 并返回指向它的存储
func setupTestRedis(t *testing.T, prefix string, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, prefix, ttl), mr
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := setupTestRedis(t, "", 0)
	_, err := s.Get(context.Background(), "cart")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStore_SetUsesPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, "gocart:", 0)

	require.NoError(t, s.Set(ctx, "cart", []byte(`[{"id":"a"}]`)))

	raw, err := mr.Get("gocart:cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, raw)
	assert.False(t, mr.Exists("cart"))

	got, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, "", time.Hour)

	require.NoError(t, s.Set(ctx, "cart", []byte("[]")))
	assert.Equal(t, time.Hour, mr.TTL("cart"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Get(ctx, "cart")
	assert.True(t, errors.IsNotFound(err))
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := setupTestRedis(t, "", 0)

	require.NoError(t, s.Set(ctx, "cart", []byte("[]")))
	require.NoError(t, s.Delete(ctx, "cart"))
	require.NoError(t, s.Delete(ctx, "cart"))
	assert.False(t, mr.Exists("cart"))
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t, "", 0)
	mr.Close()

	err := s.Set(context.Background(), "cart", []byte("[]"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeCache))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := Open(ctx, Config{Addr: mr.Addr(), Prefix: "p:", Logger: logging.NewNoopLogger()})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "cart", []byte("[]")))
	assert.True(t, mr.Exists("p:cart"))
	require.NoError(t, s.Close())
}

func TestOpen_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := Open(ctx, Config{Addr: "127.0.0.1:1", Logger: logging.NewNoopLogger()})
	require.Error(t, err)
}
