package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrVersionConflict  = errors.New("document was modified concurrently")
	ErrDatabaseInternal = errors.New("database internal error")
)

// Collection 集合句柄：隐藏具体存储引擎的增删改查接口
type Collection[T any] interface {
	Find(ctx context.Context, f *query.Features) ([]T, error)
	FindByID(ctx context.Context, id string, populate ...string) (*T, error)
	Create(ctx context.Context, payload map[string]any) (*T, error)
	UpdateByID(ctx context.Context, id string, patch map[string]any) (*T, error)
	DeleteByID(ctx context.Context, id string) (*T, error)
	// Save 整体写回（不做部分字段合并），用于认证流程
	Save(ctx context.Context, doc *T) error
}

// Populator 查询后的引用展开（替代 schema 上的 populate 钩子）
// paths 为本次调用显式请求展开的字段
type Populator[T any] func(ctx context.Context, docs []*T, paths []string) error

// Document 由 document.Base 实现
type Document interface {
	GetID() string
	AssignID()
	Touch(now time.Time)
	CurrentVersion() int
	NextVersion()
}

// Preparer 写入前的规范化（trim、slug、四舍五入等）
type Preparer interface {
	Prepare()
}

// Validator 写入前的 schema 校验，创建与更新都会执行
type Validator interface {
	Validate() error
}

// ReadOnly 查询时才展开的字段，写入载荷中一律忽略
type ReadOnly interface {
	ReadOnlyKeys() []string
}

// 客户端不能通过载荷修改的字段
var immutableKeys = map[string]bool{
	query.IDField:        true,
	"_id":                true,
	query.CreatedAtField: true,
	query.VersionField:   true,
}

// Decode 把请求载荷转换为新文档
func Decode[T any](payload map[string]any) (*T, error) {
	doc := new(T)
	if err := Merge(doc, payload); err != nil {
		return nil, err
	}
	return doc, nil
}

// Merge 把部分字段合并进已有文档，未知字段与不可变字段被忽略
func Merge[T any](doc *T, patch map[string]any) error {
	var readOnly []string
	if r, ok := any(doc).(ReadOnly); ok {
		readOnly = r.ReadOnlyKeys()
	}

	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		if immutableKeys[k] || slices.Contains(readOnly, k) {
			continue
		}
		clean[k] = v
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return errs.Wrap(err, "Invalid request payload", 400)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			root := strings.SplitN(typeErr.Field, ".", 2)[0]
			return &errs.CastError{Path: typeErr.Field, Value: fmt.Sprint(clean[root]), Err: err}
		}
		return errs.Wrap(err, "Invalid input data. "+err.Error(), 400)
	}
	return nil
}

// Check 依次执行规范化与校验
func Check(doc any) error {
	if p, ok := doc.(Preparer); ok {
		p.Prepare()
	}
	if v, ok := doc.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Populate 依次执行全部展开器
func Populate[T any](ctx context.Context, populators []Populator[T], docs []*T, paths []string) error {
	if len(docs) == 0 {
		return nil
	}
	for _, p := range populators {
		if err := p(ctx, docs, paths); err != nil {
			return err
		}
	}
	return nil
}

// Pointers 切片元素取地址，供 Populator 原地修改
func Pointers[T any](docs []T) []*T {
	out := make([]*T, len(docs))
	for i := range docs {
		out[i] = &docs[i]
	}
	return out
}

// ByIDs 构造按标识符批量查询的 Features（不分页、不投影）
func ByIDs(ids []string) *query.Features {
	return &query.Features{
		Filter: []query.Condition{{Field: query.IDField, Op: query.OpIn, Values: ids}},
	}
}

// Where 构造等值过滤的 Features（不分页、不投影）
func Where(field, value string) *query.Features {
	return &query.Features{
		Filter: []query.Condition{{Field: field, Op: query.OpEq, Value: value}},
	}
}

// Wants 判断某个展开路径是否被请求
func Wants(paths []string, name string) bool {
	for _, p := range paths {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
