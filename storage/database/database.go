// Package database 提供键值持久化所需的最小数据库抽象
//
// sqlstore 只依赖这里的接口，具体驱动由 basic 包基于 database/sql 提供，
// 测试中使用 sqlite 内存库。
package database

import (
	"context"
	"database/sql"
)

// IDatabase 通用数据库接口
type IDatabase interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	Begin(ctx context.Context) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 事务接口
type ITransaction interface {
	IDatabase

	Commit() error
	Rollback() error
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver   string // sqlite, mysql, postgres
	Database string // DSN，sqlite 下为文件路径或 ":memory:"

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // 秒
}
