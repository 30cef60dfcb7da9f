// Package config 加载购物车进程配置：YAML 文件 + CART_* 环境变量覆盖
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gocart/errors"
	"gocart/logging"
	"gocart/validation"
)

// 存储后端
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNATS   = "nats"
)

// Backends 支持的存储后端
var Backends = []string{BackendMemory, BackendSQLite, BackendRedis, BackendNATS}

// Config 顶层配置
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig 持久化配置
type StorageConfig struct {
	Backend string       `yaml:"backend"`
	Key     string       `yaml:"key"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
	NATS    NATSConfig   `yaml:"nats"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type NATSConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

// QueueConfig 保存队列配置
type QueueConfig struct {
	Size         int           `yaml:"size"`
	Workers      int           `yaml:"workers"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Prefix string `yaml:"prefix"`
}

// Default 返回默认配置
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendMemory,
			Key:     "cart",
			SQLite:  SQLiteConfig{Path: "cart.db"},
			Redis:   RedisConfig{Addr: "localhost:6379"},
			NATS:    NATSConfig{URL: "nats://127.0.0.1:4222", Bucket: "GOCART"},
		},
		Queue: QueueConfig{
			Size:         256,
			Workers:      1,
			DrainTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info", Prefix: "[gocart]"},
	}
}

// Load 读取配置
//
// path 为空时只使用默认值与环境变量。文件中未出现的字段保留默认值。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.WrapError(err, errors.ErrCodeInvalidInput, fmt.Sprintf("读取配置文件失败: %s", path))
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.WrapError(err, errors.ErrCodeInvalidInput, fmt.Sprintf("解析配置文件失败: %s", path))
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("CART_STORAGE_BACKEND", &c.Storage.Backend)
	str("CART_STORAGE_KEY", &c.Storage.Key)
	str("CART_SQLITE_PATH", &c.Storage.SQLite.Path)
	str("CART_REDIS_ADDR", &c.Storage.Redis.Addr)
	str("CART_REDIS_PASSWORD", &c.Storage.Redis.Password)
	str("CART_NATS_URL", &c.Storage.NATS.URL)
	str("CART_NATS_BUCKET", &c.Storage.NATS.Bucket)
	str("CART_LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("CART_QUEUE_SIZE"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.WrapError(err, errors.ErrCodeInvalidInput, "CART_QUEUE_SIZE 必须为整数")
		}
		c.Queue.Size = n
	}
	return nil
}

// Validate 校验配置
func (c Config) Validate() error {
	if err := validation.ValidateEnum(c.Storage.Backend, "storage.backend", Backends); err != nil {
		return err
	}
	if err := validation.ValidateRequired(c.Storage.Key, "storage.key"); err != nil {
		return err
	}
	if err := validation.ValidatePositive(c.Queue.Size, "queue.size"); err != nil {
		return err
	}
	if err := validation.ValidatePositive(c.Queue.Workers, "queue.workers"); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.WrapError(err, errors.ErrCodeValidation, "log.level 无效")
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		return validation.ValidateRequired(c.Storage.SQLite.Path, "storage.sqlite.path")
	case BackendRedis:
		return validation.ValidateRequired(c.Storage.Redis.Addr, "storage.redis.addr")
	case BackendNATS:
		return validation.ValidateRequired(c.Storage.NATS.URL, "storage.nats.url")
	}
	return nil
}

// LogLevel 解析后的日志级别，无效时返回 Info
func (c Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}
