package errors

import (
	"bytes"
	"context"
	stdErrors "errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocart/logging"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := WrapError(cause, ErrCodeDatabase, "保存购物车失败")

	require.NotNil(t, err)
	assert.Equal(t, "[DATABASE_ERROR] 保存购物车失败: disk full", err.Error())
	assert.True(t, stdErrors.Is(err, cause))
	assert.Equal(t, ErrCodeDatabase, err.Code())
	assert.NotEmpty(t, err.Stack())
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrCodeInternal, "msg"))
}

func TestAppError_IsByCode(t *testing.T) {
	a := NewError(ErrCodeNotFound, "a")
	b := NewError(ErrCodeNotFound, "b")
	c := NewError(ErrCodeValidation, "c")

	assert.True(t, stdErrors.Is(a, b))
	assert.False(t, stdErrors.Is(a, c))
}

func TestAppError_WithDetailsIsCopy(t *testing.T) {
	base := NewError(ErrCodeValidation, "bad price")
	withKey := base.WithContext("item_id", "a")

	assert.Equal(t, "a", withKey.Details()["item_id"])
	assert.Empty(t, base.Details())
}

func TestCodeHelpers(t *testing.T) {
	wrapped := WrapError(NewError(ErrCodeNotFound, "missing"), ErrCodeNotFound, "load")

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, IsValidation(NewValidationError("x")))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(stdErrors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
	assert.False(t, IsErrorCode(nil, ErrCodeInternal))
}

func TestWrapWithLog(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := logging.NewStdLogger("test")
	err := WrapWithLog(context.Background(), logger, stdErrors.New("timeout"), ErrCodeNetwork, "连接失败",
		logging.String("addr", "localhost:6379"))

	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeNetwork))
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "error_code=NETWORK_ERROR")
	assert.Contains(t, buf.String(), "addr=localhost:6379")

	assert.NoError(t, WrapWithLog(context.Background(), logger, nil, ErrCodeNetwork, "noop"))
}

func TestWrapStorageError(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNoopLogger()

	notFound := WrapStorageError(ctx, logger, NewError(ErrCodeNotFound, "no key"), "get")
	assert.True(t, IsNotFound(notFound))

	dbErr := WrapStorageError(ctx, logger, stdErrors.New("locked"), "set")
	assert.True(t, IsErrorCode(dbErr, ErrCodeDatabase))

	assert.NoError(t, WrapStorageError(ctx, logger, nil, "get"))
}
