package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocart/errors"
	"gocart/logging"
)

func sqliteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cart.yaml")
	content := fmt.Sprintf("storage:\n  backend: sqlite\n  sqlite:\n    path: %s\nlog:\n  level: error\n", filepath.Join(dir, "cart.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCmd(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-config", cfg}, args...), &out)
	return out.String(), err
}

func TestRun_PersistsAcrossInvocations(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })
	cfg := sqliteConfig(t)

	out, err := runCmd(t, cfg, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "购物车为空")

	_, err = runCmd(t, cfg, "add", "-id", "a", "-name", "A", "-price", "10")
	require.NoError(t, err)
	_, err = runCmd(t, cfg, "add", "-id", "a", "-name", "A", "-price", "10")
	require.NoError(t, err)
	out, err = runCmd(t, cfg, "add", "-id", "b", "-name", "B", "-price", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "合计 25.00")

	out, err = runCmd(t, cfg, "set", "a", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "合计 5.00")
	assert.NotContains(t, out, "A ")

	out, err = runCmd(t, cfg, "remove", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "购物车为空")

	_, err = runCmd(t, cfg, "add", "-id", "c", "-price", "1.5")
	require.NoError(t, err)
	out, err = runCmd(t, cfg, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "购物车为空")
}

func TestRun_Errors(t *testing.T) {
	t.Cleanup(func() { logging.SetLogger(nil) })
	cfg := sqliteConfig(t)

	var out bytes.Buffer
	err := run(context.Background(), nil, &out)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, out.String(), "usage")

	_, err = runCmd(t, cfg, "explode")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))

	_, err = runCmd(t, cfg, "set", "a", "many")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))

	_, err = runCmd(t, cfg, "add", "-id", "a", "-price", "abc")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))

	_, err = runCmd(t, cfg, "add", "-price", "1")
	assert.True(t, errors.IsValidation(err))

	_, err = runCmd(t, cfg, "remove")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
}
