// Package redisstore 基于 Redis 的 Storage 实现
package redisstore

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gocart/errors"
	"gocart/logging"
	"gocart/patterns/retry"
	"gocart/persistence"
)

// Config Redis 存储配置
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix 追加在键前，用于与其他应用共享实例
	Prefix string
	// TTL 为 0 时不过期
	TTL time.Duration

	Logger logging.Logger
}

// Store Redis 键值存储
type Store struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	ownsClient bool
}

// New 使用已有客户端创建存储，Close 不关闭客户端
func New(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Open 创建客户端并以指数退避 PING 直到可用
func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.ComponentLogger("persistence.redis")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		return client.Ping(ctx).Err()
	}, retry.ConnectConfig("redis ping "+cfg.Addr, logger))
	if err != nil {
		_ = client.Close()
		return nil, errors.WrapError(err, errors.ErrCodeCache, "连接 Redis 失败")
	}

	logger.Info(ctx, "Redis 已连接", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	s := New(client, cfg.Prefix, cfg.TTL)
	s.ownsClient = true
	return s, nil
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if stdErrors.Is(err, redis.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeCache, "redis get failed")
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "redis set failed")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "redis delete failed")
	}
	return nil
}

// Close 关闭由 Open 创建的客户端
func (s *Store) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

var _ persistence.Storage = (*Store)(nil)
