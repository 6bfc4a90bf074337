// pkg/common/errors/app_error.go

/*
  - 使用实例
    // 业务代码只负责构造错误，格式化统一交给 middleware.ErrorHandler:
    if doc == nil {
        return errors.New("No document found with that ID", 404)
    }

    // 判断错误类型请使用 errors.As:
    var appErr *errors.AppError
    if errors.As(err, &appErr) && appErr.IsOperational {
        // 可以直接展示给客户端
    }
*/
package errors

import (
	"errors"
	"runtime/debug"
	"strconv"
	"strings"
)

const (
	StatusFail  = "fail"  // 客户端错误 4xx
	StatusError = "error" // 服务端错误 5xx
)

// AppError 业务层主动抛出的错误（operational error）
type AppError struct {
	StatusCode    int
	Status        string
	Message       string
	IsOperational bool
	Err           error  // 原始错误，可能为空
	Stack         string // 构造时的调用栈，仅开发环境输出
}

// New 构造一个可直接展示给客户端的错误
func New(message string, statusCode int) *AppError {
	return &AppError{
		StatusCode:    statusCode,
		Status:        StatusOf(statusCode),
		Message:       message,
		IsOperational: true,
		Stack:         string(debug.Stack()),
	}
}

// Wrap 与 New 相同，但保留底层原因
func Wrap(cause error, message string, statusCode int) *AppError {
	e := New(message, statusCode)
	e.Err = cause
	return e
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Err }

// StatusOf 4xx 归类为 fail，其余为 error
func StatusOf(statusCode int) string {
	if strings.HasPrefix(strconv.Itoa(statusCode), "4") {
		return StatusFail
	}
	return StatusError
}

// 常用错误
func NotFound(message string) *AppError     { return New(message, 404) }
func BadRequest(message string) *AppError   { return New(message, 400) }
func Unauthorized(message string) *AppError { return New(message, 401) }
func Forbidden(message string) *AppError    { return New(message, 403) }

// Is / As 透传标准库，方便调用方只导入本包
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
