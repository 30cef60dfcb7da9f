// Package natskv 基于 NATS JetStream Key-Value 的 Storage 实现
package natskv

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"gocart/errors"
	"gocart/logging"
	"gocart/patterns/retry"
	"gocart/persistence"
)

// DefaultBucket 默认 KV bucket 名
const DefaultBucket = "GOCART"

// Config NATS KV 存储配置
type Config struct {
	URL    string
	Bucket string
	// Conn 非空时复用连接，Close 不关闭它
	Conn   *nats.Conn
	Logger logging.Logger
}

// bucket nats.KeyValue 中用到的部分
type bucket interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
}

// Store JetStream KV 存储
//
// 键只能包含 [-/_=.a-zA-Z0-9]。
type Store struct {
	kv       bucket
	conn     *nats.Conn
	ownsConn bool
}

// Open 连接 NATS 并打开 bucket，不存在时创建
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.ComponentLogger("persistence.natskv")
	}

	conn, owns := cfg.Conn, false
	if conn == nil {
		err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
			c, err := nats.Connect(cfg.URL, nats.Name("gocart"))
			if err != nil {
				return err
			}
			conn = c
			return nil
		}, retry.ConnectConfig("nats connect "+cfg.URL, logger))
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeNetwork, "连接 NATS 失败")
		}
		owns = true
	}

	kv, err := openBucket(conn, cfg.Bucket)
	if err != nil {
		if owns {
			conn.Close()
		}
		return nil, err
	}

	logger.Info(ctx, "NATS KV 已就绪",
		logging.String("url", cfg.URL),
		logging.String("bucket", cfg.Bucket))
	return &Store{kv: kv, conn: conn, ownsConn: owns}, nil
}

func openBucket(conn *nats.Conn, name string) (nats.KeyValue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeNetwork, "获取 JetStream 上下文失败")
	}
	kv, err := js.KeyValue(name)
	if stdErrors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      name,
			Description: "gocart cart snapshots",
			History:     1,
		})
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeNetwork, fmt.Sprintf("打开 KV bucket %s 失败", name))
	}
	return kv, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(key)
	if stdErrors.Is(err, nats.ErrKeyNotFound) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeNetwork, "nats kv get failed")
	}
	return entry.Value(), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(key, value); err != nil {
		return errors.WrapError(err, errors.ErrCodeNetwork, "nats kv put failed")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(key)
	if err != nil && !stdErrors.Is(err, nats.ErrKeyNotFound) {
		return errors.WrapError(err, errors.ErrCodeNetwork, "nats kv delete failed")
	}
	return nil
}

// Close 关闭由 Open 建立的连接
func (s *Store) Close() error {
	if s.ownsConn && s.conn != nil {
		return s.conn.Drain()
	}
	return nil
}

var _ persistence.Storage = (*Store)(nil)
