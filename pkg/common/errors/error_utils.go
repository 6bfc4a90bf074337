package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// region 错误处理工具函数

// Normalize 补齐状态码（默认500）和状态分类（默认error）
// 非 AppError 一律视为非预期错误
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode == 0 {
			appErr.StatusCode = 500
		}
		if appErr.Status == "" {
			appErr.Status = StatusOf(appErr.StatusCode)
		}
		return appErr
	}
	return &AppError{
		StatusCode: 500,
		Status:     StatusError,
		Message:    err.Error(),
		Err:        err,
		Stack:      string(debug.Stack()),
	}
}

// ForClient 识别已知错误形态，改写为客户端安全的 4xx 错误
// 参数说明：
//   - err: 处理链上任意位置抛出的错误
//
// 返回值：
//   - *AppError: 已知形态返回对应的 operational 错误，其余原样交给 Normalize
func ForClient(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return Normalize(appErr)
	}

	var castErr *CastError
	var dupErr *DuplicateKeyError
	var valErr *ValidationError
	switch {
	case errors.As(err, &castErr):
		return Wrap(err, fmt.Sprintf("Invalid %s: %s.", castErr.Path, castErr.Value), 400)
	case errors.As(err, &dupErr):
		return Wrap(err, fmt.Sprintf("Duplicate field value: %s. Please use another value!", dupErr.Value), 400)
	case errors.As(err, &valErr):
		return Wrap(err, "Invalid input data. "+strings.Join(valErr.Messages(), ". "), 400)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Wrap(err, "Your token has expired! Please log in again", 401)
	case IsTokenError(err):
		return Wrap(err, "Invalid token. Please log in again", 401)
	}

	return Normalize(err)
}

// IsTokenError 判断是否为令牌解析/校验失败（不含过期）
func IsTokenError(err error) bool {
	return errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued)
}

// endregion
