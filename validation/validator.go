// Package validation 提供通用的字段验证辅助函数
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"gocart/errors"
)

// IValidator 定义通用验证器接口
type IValidator interface {
	Validate(value any) error
}

// NoopValidator 默认验证器，实现为空操作
type NoopValidator struct{}

// Validate 实现 IValidator 接口
func (NoopValidator) Validate(value any) error {
	return nil
}

// ValidatorFunc 函数适配器
type ValidatorFunc func(value any) error

// Validate 实现 IValidator 接口
func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidateRequired 验证必填字段
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能为空", fieldName))
	}
	return nil
}

// ValidateStringLength 验证字符串长度（按字符计），max<=0 表示不限制
func ValidateStringLength(value, fieldName string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if length < min {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s长度不能少于%d个字符（当前%d）", fieldName, min, length))
	}
	if max > 0 && length > max {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s长度不能超过%d个字符（当前%d）", fieldName, max, length))
	}
	return nil
}

// ValidateNonNegative 验证金额不为负数
func ValidateNonNegative(value decimal.Decimal, fieldName string) error {
	if value.IsNegative() {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能为负数（当前%s）", fieldName, value.String()))
	}
	return nil
}

// ValidatePositive 验证正整数
func ValidatePositive(value int, fieldName string) error {
	if value <= 0 {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s必须为正数（当前%d）", fieldName, value))
	}
	return nil
}

// ValidateEnum 验证枚举值
func ValidateEnum(value, fieldName string, validValues []string) error {
	for _, valid := range validValues {
		if value == valid {
			return nil
		}
	}
	return errors.NewError(errors.ErrCodeValidation,
		fmt.Sprintf("%s的值无效，必须是以下之一: %v", fieldName, validValues))
}
