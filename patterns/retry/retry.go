// Package retry 为远程存储的建立连接阶段提供指数退避重试
//
// 购物车的加载与保存本身不重试，这里只用于启动时连接 Redis / NATS / SQL。
package retry

import (
	"context"
	stdErrors "errors"
	"time"

	"gocart/logging"
)

// Operation 可重试的操作函数类型，attempt 从 1 开始
type Operation func(ctx context.Context, attempt int) error

// Config 重试配置
type Config struct {
	MaxAttempts   int           // 最大尝试次数（包括首次）
	InitialDelay  time.Duration // 初始退避延迟
	BackoffFactor float64       // 退避倍数
	MaxDelay      time.Duration // 最大延迟

	// Logger 非空时每次失败记录一条 Warn 日志
	Logger logging.Logger
	// Name 日志中的操作名
	Name string
}

// DefaultConfig 返回默认配置：2 次尝试，2ms 起步
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   2,
		InitialDelay:  2 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      1 * time.Second,
	}
}

// ConnectConfig 返回建立远程连接使用的配置：5 次尝试，100ms 起步，最长 2s
func ConnectConfig(name string, logger logging.Logger) Config {
	return Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      2 * time.Second,
		Logger:        logger,
		Name:          name,
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 包装不可重试的错误，Do 遇到后立即返回原错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do 执行带重试的操作
//
// 返回 nil（任意一次成功）、最后一次错误，或上下文错误。
//
//	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
//	    return client.Ping(ctx).Err()
//	}, retry.ConnectConfig("redis", logger))
func Do(ctx context.Context, op Operation, cfg Config) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if stdErrors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.delay(attempt)
		if cfg.Logger != nil {
			cfg.Logger.Warn(ctx, "操作失败，准备重试",
				logging.String("operation", cfg.Name),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", cfg.MaxAttempts),
				logging.Duration("delay", delay),
				logging.Error(err))
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return lastErr
}

// delay 第 attempt 次失败后的退避时间
func (c Config) delay(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= factor
		if c.MaxDelay > 0 && time.Duration(d) > c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && time.Duration(d) > c.MaxDelay {
		return c.MaxDelay
	}
	return time.Duration(d)
}
