// Package sqlstore 基于 database.IDatabase 的键值存储
//
// 每个键只保留一行，写入采用“UPDATE 若无则 INSERT”，兼容 SQLite/MySQL/Postgres。
package sqlstore

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"time"

	"gocart/errors"
	"gocart/logging"
	"gocart/persistence"
	"gocart/storage/database"
	"gocart/storage/database/basic"
	"gocart/storage/database/dialect"
)

// DefaultTableName 默认表名
const DefaultTableName = "kv_store"

// Store SQL 键值存储
type Store struct {
	db      database.IDatabase
	dialect dialect.Dialect
	table   string
	keyCol  string
	valCol  string
	tsCol   string
	ownsDB  bool
	logger  logging.Logger
}

// New 在已有连接上创建存储；table 为空时使用 kv_store
func New(db database.IDatabase, table string) *Store {
	if table == "" {
		table = DefaultTableName
	}
	d := dialect.FromDatabase(db)
	return &Store{
		db:      db,
		dialect: d,
		table:   d.QuoteIdentifier(table),
		keyCol:  d.QuoteIdentifier("key"),
		valCol:  d.QuoteIdentifier("value"),
		tsCol:   d.QuoteIdentifier("updated_at"),
		logger:  logging.ComponentLogger("persistence.sqlstore"),
	}
}

// Open 打开 SQLite 文件并建表，Close 时关闭连接
//
// 驱动需由调用方空导入 modernc.org/sqlite。
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := basic.New(database.DBConfig{Driver: "sqlite", Database: path, MaxOpenConns: 1})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, fmt.Sprintf("打开数据库失败: %s", path))
	}
	s := New(db, "")
	s.ownsDB = true
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema 建表（幂等）
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s VARCHAR(255) PRIMARY KEY,
	%s BLOB NOT NULL,
	%s TIMESTAMP NOT NULL
)`, s.table, s.keyCol, s.valCol, s.tsCol)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "创建键值表失败")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, s.valCol, s.table, s.keyCol)
	var value []byte
	if err := s.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, "查询键值失败")
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()

	updated, err := s.update(ctx, key, value, now)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)`,
		s.table, s.keyCol, s.valCol, s.tsCol)
	if _, err := s.db.Exec(ctx, insertSQL, key, value, now); err != nil {
		// 并发插入同一键时退回 UPDATE
		if s.dialect.IsUniqueViolation(err) {
			s.logger.Debug(ctx, "插入冲突，改为更新", logging.String("key", key))
			_, err = s.update(ctx, key, value, now)
			return err
		}
		return errors.WrapError(err, errors.ErrCodeDatabase, "插入键值失败")
	}
	return nil
}

func (s *Store) update(ctx context.Context, key string, value []byte, now time.Time) (bool, error) {
	updateSQL := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ? WHERE %s = ?`,
		s.table, s.valCol, s.tsCol, s.keyCol)
	res, err := s.db.Exec(ctx, updateSQL, value, now, key)
	if err != nil {
		return false, errors.WrapError(err, errors.ErrCodeDatabase, "更新键值失败")
	}
	rows, err := res.RowsAffected()
	return err == nil && rows > 0, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, s.table, s.keyCol)
	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "删除键值失败")
	}
	return nil
}

// Close 关闭由 Open 创建的连接；New 传入的连接由调用方管理
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

var _ persistence.Storage = (*Store)(nil)
