package errors

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// CastError 标识符或字段值无法转换为目标类型
type CastError struct {
	Path  string
	Value string
	Err   error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("Cast failed for value %q at path %q", e.Value, e.Path)
}

func (e *CastError) Unwrap() error { return e.Err }

// DuplicateKeyError 唯一性约束冲突
type DuplicateKeyError struct {
	Value string // 冲突的值（带引号），来自驱动错误信息
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("duplicate key: %s", e.Value)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// FieldError 单个字段的校验失败
type FieldError struct {
	Path    string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// ValidationError 聚合一次写入中所有字段的校验失败
type ValidationError struct {
	errs error
}

// Add 追加一条字段错误
func (v *ValidationError) Add(path, message string) {
	v.errs = multierr.Append(v.errs, &FieldError{Path: path, Message: message})
}

// Fields 返回全部字段错误
func (v *ValidationError) Fields() []*FieldError {
	var out []*FieldError
	for _, err := range multierr.Errors(v.errs) {
		if fe, ok := err.(*FieldError); ok {
			out = append(out, fe)
		}
	}
	return out
}

// Messages 按追加顺序返回错误信息
func (v *ValidationError) Messages() []string {
	fields := v.Fields()
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}

// Merge 并入另一个校验错误的全部字段；其他错误被忽略
func (v *ValidationError) Merge(err error) {
	var other *ValidationError
	if As(err, &other) && other != v {
		v.errs = multierr.Append(v.errs, other.errs)
	}
}

// ErrOrNil 没有字段错误时返回 nil，避免返回带类型的 nil 指针
func (v *ValidationError) ErrOrNil() error {
	if v == nil || v.errs == nil {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	return "validation failed: " + strings.Join(v.Messages(), "; ")
}
