package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocart/errors"
	"gocart/logging"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "cart", cfg.Storage.Key)
	assert.Equal(t, "cart.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, 256, cfg.Queue.Size)
	assert.Equal(t, 1, cfg.Queue.Workers)
	assert.Equal(t, logging.InfoLevel, cfg.LogLevel())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
storage:
  backend: Redis
  key: cart:guest
  redis:
    addr: redis:6379
    prefix: "gocart:"
    ttl: 24h
queue:
  size: 32
  drain_timeout: 2s
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "cart:guest", cfg.Storage.Key)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "gocart:", cfg.Storage.Redis.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.Storage.Redis.TTL)
	assert.Equal(t, 32, cfg.Queue.Size)
	assert.Equal(t, 2*time.Second, cfg.Queue.DrainTimeout)
	// 文件未设置的字段保留默认值
	assert.Equal(t, 1, cfg.Queue.Workers)
	assert.Equal(t, "GOCART", cfg.Storage.NATS.Bucket)
	assert.Equal(t, logging.DebugLevel, cfg.LogLevel())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "storage:\n  backend: redis\n")
	t.Setenv("CART_STORAGE_BACKEND", "sqlite")
	t.Setenv("CART_SQLITE_PATH", "/tmp/other.db")
	t.Setenv("CART_QUEUE_SIZE", "8")
	t.Setenv("CART_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/other.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, 8, cfg.Queue.Size)
	assert.Equal(t, logging.WarnLevel, cfg.LogLevel())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))

	_, err = Load(writeFile(t, "storage: [unclosed"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))

	t.Setenv("CART_QUEUE_SIZE", "many")
	_, err = Load("")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "未知后端", mutate: func(c *Config) { c.Storage.Backend = "etcd" }},
		{name: "空键", mutate: func(c *Config) { c.Storage.Key = " " }},
		{name: "队列为0", mutate: func(c *Config) { c.Queue.Size = 0 }},
		{name: "队列为负", mutate: func(c *Config) { c.Queue.Size = -1 }},
		{name: "worker为0", mutate: func(c *Config) { c.Queue.Workers = 0 }},
		{name: "日志级别", mutate: func(c *Config) { c.Log.Level = "verbose" }},
		{name: "sqlite缺路径", mutate: func(c *Config) { c.Storage.Backend = BackendSQLite; c.Storage.SQLite.Path = "" }},
		{name: "redis缺地址", mutate: func(c *Config) { c.Storage.Backend = BackendRedis; c.Storage.Redis.Addr = "" }},
		{name: "nats缺地址", mutate: func(c *Config) { c.Storage.Backend = BackendNATS; c.Storage.NATS.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestApplyEnv_IgnoresBlank(t *testing.T) {
	cfg := Default()
	env := map[string]string{"CART_STORAGE_KEY": "  ", "CART_NATS_BUCKET": "CARTS"}
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, "cart", cfg.Storage.Key)
	assert.Equal(t, "CARTS", cfg.Storage.NATS.Bucket)
}
