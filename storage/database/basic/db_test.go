package basic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "gocart/storage/database"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(core.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.MustExecDDL(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`))
	return db
}

func TestDB_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)

	_, err := db.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?), (?, ?)`, "a", "1", "b", "2")
	require.NoError(t, err)

	var v string
	require.NoError(t, db.QueryRow(ctx, `SELECT v FROM kv WHERE k = ?`, "b").Scan(&v))
	assert.Equal(t, "2", v)

	rows, err := db.Query(ctx, `SELECT k FROM kv ORDER BY k`)
	require.NoError(t, err)
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		keys = append(keys, k)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, "sqlite", db.GetDialectName())
}

func TestTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n))
	assert.Equal(t, 0, n)

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
	require.NoError(t, err)
	_, nestedErr := tx.Begin(ctx)
	assert.Error(t, nestedErr)
	require.NoError(t, tx.Commit())

	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n))
	assert.Equal(t, 1, n)
}
