package errors

import (
	"context"
	"fmt"
	"runtime"

	"gocart/logging"
)

// WrapWithLog 包装错误并记录警告日志
//
// 用于吞掉错误的后台路径（加载/保存），错误不会返回给调用方时使用。
func WrapWithLog(ctx context.Context, logger logging.Logger, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	_, file, line, _ := runtime.Caller(1)
	wrapped := WrapError(err, code, msg)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)
	logger.Warn(ctx, msg, allFields...)

	return wrapped
}

// WrapStorageError 包装存储后端错误
//
// NotFound 保持原错误码不记日志，其余统一归为 ErrCodeDatabase 并记录。
func WrapStorageError(ctx context.Context, logger logging.Logger, err error, operation string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return WrapError(err, ErrCodeNotFound, operation)
	}
	return WrapWithLog(ctx, logger, err, ErrCodeDatabase,
		fmt.Sprintf("存储操作失败: %s", operation),
		logging.String("operation", operation),
	)
}

// NewValidationError 创建新的验证错误
func NewValidationError(msg string) error {
	return NewError(ErrCodeValidation, msg)
}
