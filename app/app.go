// Package app 按配置装配购物车：存储后端、保存队列、Store 与启动加载
package app

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"gocart/cart"
	"gocart/config"
	"gocart/errors"
	"gocart/logging"
	"gocart/messaging/transport/memory"
	"gocart/persistence"
	memstore "gocart/persistence/memory"
	"gocart/persistence/natskv"
	"gocart/persistence/redisstore"
	"gocart/persistence/sqlstore"
)

// App 一个购物车作用域的全部组件
type App struct {
	Config    config.Config
	Store     *cart.Store
	Storage   persistence.Storage
	Transport *memory.MemoryTransport
	Saver     *persistence.SaveHandler

	logger    logging.Logger
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// Option App 配置函数
type Option func(*options)

type options struct {
	storage persistence.Storage
	logger  logging.Logger
}

// WithStorage 使用给定存储，忽略配置中的后端
func WithStorage(storage persistence.Storage) Option {
	return func(o *options) { o.storage = storage }
}

// WithLogger 使用给定日志实现，不修改全局 logger
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New 装配并启动：打开存储、启动保存队列、创建 Store 并开始后台加载
//
// 返回时加载可能尚未完成，需要已加载状态的调用方使用 Store.WaitLoaded。
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		logging.SetLogger(logging.NewStdLoggerWithLevel(cfg.Log.Prefix, cfg.LogLevel()))
		o.logger = logging.ComponentLogger("app")
	}

	storage := o.storage
	if storage == nil {
		var err error
		storage, err = OpenStorage(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
	}

	// 队列与加载的生命周期跟随 App，而不是 New 的调用上下文
	runCtx, cancel := context.WithCancel(context.Background())

	saver := persistence.NewSaveHandler(storage, o.logger.WithFields(logging.String("component", "persistence.save")))
	transport := memory.NewMemoryTransport(cfg.Queue.Size, cfg.Queue.Workers, memory.WithLogger(o.logger))
	if err := transport.Subscribe(cart.ChangedMessageType, saver); err != nil {
		cancel()
		_ = storage.Close()
		return nil, errors.WrapError(err, errors.ErrCodeQueue, "订阅保存处理器失败")
	}
	if err := transport.Start(runCtx); err != nil {
		cancel()
		_ = storage.Close()
		return nil, errors.WrapError(err, errors.ErrCodeQueue, "启动保存队列失败")
	}

	store := cart.NewStore(
		cart.WithTransport(transport),
		cart.WithStorageKey(cfg.Storage.Key),
		cart.WithLogger(o.logger.WithFields(logging.String("component", "cart.store"))),
	)
	store.Hydrate(runCtx, persistence.NewLoader(storage))

	o.logger.Info(ctx, "购物车已启动",
		logging.String("backend", cfg.Storage.Backend),
		logging.String("key", cfg.Storage.Key),
		logging.Int("queue_size", cfg.Queue.Size),
		logging.Int("workers", cfg.Queue.Workers))

	return &App{
		Config:    cfg,
		Store:     store,
		Storage:   storage,
		Transport: transport,
		Saver:     saver,
		logger:    o.logger,
		cancel:    cancel,
	}, nil
}

// Context 返回注入了 Store 的上下文
func (a *App) Context(parent context.Context) context.Context {
	return cart.WithStore(parent, a.Store)
}

// Close 等待保存队列排空后关闭存储，可重复调用
//
// ctx 到期时队列中剩余的快照被放弃：Worker 处理完手头的快照后退出，
// 存储在后台等到 Worker 全部退出后再关闭，Close 直接返回超时错误。
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		var errs []error
		drainErr := a.Transport.CloseWithContext(ctx)
		a.cancel()

		if drainErr != nil {
			errs = append(errs, errors.WrapError(drainErr, errors.ErrCodeQueue, "排空保存队列失败"))
			a.logger.Warn(ctx, "保存队列未排空，剩余快照被放弃",
				logging.Int("queue_depth", a.Transport.Stats().QueueDepth),
				logging.Error(drainErr))
			go a.closeStorageAfterDrain()
		} else if err := a.Storage.Close(); err != nil {
			errs = append(errs, errors.WrapError(err, errors.ErrCodeDatabase, "关闭存储失败"))
		}

		stats := a.Saver.Stats()
		a.logger.Info(ctx, "购物车已关闭",
			logging.Uint64("saved", stats.Saved),
			logging.Uint64("failed", stats.Failed),
			logging.Int64("dropped", a.Transport.Dropped()))
		a.closeErr = stdErrors.Join(errs...)
	})
	return a.closeErr
}

// closeStorageAfterDrain 等待进行中的写入结束再关闭存储
func (a *App) closeStorageAfterDrain() {
	a.Transport.Wait()
	if err := a.Storage.Close(); err != nil {
		a.logger.Warn(context.Background(), "关闭存储失败", logging.Error(err))
	}
}

// OpenStorage 按配置打开存储后端
func OpenStorage(ctx context.Context, cfg config.Config, logger logging.Logger) (persistence.Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memstore.NewStore(), nil
	case config.BackendSQLite:
		return sqlstore.Open(ctx, cfg.Storage.SQLite.Path)
	case config.BackendRedis:
		r := cfg.Storage.Redis
		return redisstore.Open(ctx, redisstore.Config{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      r.TTL,
			Logger:   logger,
		})
	case config.BackendNATS:
		return natskv.Open(ctx, natskv.Config{
			URL:    cfg.Storage.NATS.URL,
			Bucket: cfg.Storage.NATS.Bucket,
			Logger: logger,
		})
	default:
		return nil, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend))
	}
}
