package memdao

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
)

type row[T any] struct {
	doc  *T
	view map[string]any
}

// memBuilder 在 json 视图上执行过滤、排序与分页
type memBuilder[T any] struct {
	rows []row[T]
	err  error
}

var _ query.Builder = (*memBuilder[struct{}])(nil)

func (b *memBuilder[T]) Filter(conds []query.Condition) query.Builder {
	if len(conds) == 0 {
		return b
	}
	kept := b.rows[:0:0]
	for _, r := range b.rows {
		ok, err := matchAll(r.view, conds)
		if err != nil {
			b.err = err
			return b
		}
		if ok {
			kept = append(kept, r)
		}
	}
	b.rows = kept
	return b
}

func (b *memBuilder[T]) Sort(fields []query.SortField) query.Builder {
	if b.err != nil || len(fields) == 0 {
		return b
	}
	sort.SliceStable(b.rows, func(i, j int) bool {
		for _, f := range fields {
			vi, _ := lookupPath(b.rows[i].view, f.Field)
			vj, _ := lookupPath(b.rows[j].view, f.Field)
			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return b
}

// Project 只校验投影，字段裁剪在输出时完成
func (b *memBuilder[T]) Project(p query.Projection) query.Builder {
	if b.err == nil && p.Mixed() {
		b.err = errs.BadRequest("Projection cannot have a mix of inclusion and exclusion.")
	}
	return b
}

func (b *memBuilder[T]) Paginate(skip, limit int) query.Builder {
	if b.err != nil {
		return b
	}
	if skip > 0 {
		if skip >= len(b.rows) {
			b.rows = nil
			return b
		}
		b.rows = b.rows[skip:]
	}
	if limit > 0 && limit < len(b.rows) {
		b.rows = b.rows[:limit]
	}
	return b
}

func matchAll(view map[string]any, conds []query.Condition) (bool, error) {
	for _, c := range conds {
		ok, err := match(view, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(view map[string]any, c query.Condition) (bool, error) {
	v, ok := lookupPath(view, c.Field)
	if !ok || v == nil {
		return false, nil
	}

	if c.Op == query.OpIn {
		for _, raw := range c.Values {
			hit, err := matchValue(v, query.OpEq, c.Field, raw)
			if err != nil || hit {
				return hit, err
			}
		}
		return false, nil
	}
	return matchValue(v, c.Op, c.Field, c.Value)
}

// matchValue 数组字段：任一元素满足即匹配
func matchValue(v any, op query.Operator, path, raw string) (bool, error) {
	if arr, ok := v.([]any); ok {
		for _, el := range arr {
			hit, err := matchValue(el, op, path, raw)
			if err != nil || hit {
				return hit, err
			}
		}
		return false, nil
	}

	want, err := castLike(v, path, raw)
	if err != nil {
		return false, err
	}
	c := compareValues(v, want)

	switch op {
	case query.OpEq:
		return c == 0, nil
	case query.OpGte:
		return c >= 0, nil
	case query.OpGt:
		return c > 0, nil
	case query.OpLte:
		return c <= 0, nil
	case query.OpLt:
		return c < 0, nil
	}
	return false, errs.BadRequest(fmt.Sprintf("Unsupported filter operator: %s", op))
}

// castLike 把查询串里的值转换成与文档值相同的类型
func castLike(v any, path, raw string) (any, error) {
	switch x := v.(type) {
	case float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &errs.CastError{Path: path, Value: raw, Err: err}
		}
		return f, nil
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &errs.CastError{Path: path, Value: raw, Err: err}
		}
		return b, nil
	case string:
		if _, err := time.Parse(time.RFC3339Nano, x); err == nil {
			if t, ok := parseTime(raw); ok {
				return t.UTC().Format(time.RFC3339Nano), nil
			}
		}
		return raw, nil
	}
	return raw, nil
}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareValues nil 最小；时间字符串按时间比较
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case string:
		if y, ok := b.(string); ok {
			tx, errX := time.Parse(time.RFC3339Nano, x)
			ty, errY := time.Parse(time.RFC3339Nano, y)
			if errX == nil && errY == nil {
				return tx.Compare(ty)
			}
			return strings.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func lookupPath(view map[string]any, path string) (any, bool) {
	var cur any = view
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func jsonView(doc any) (map[string]any, error) {
	data, err := sonic.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// clone 深拷贝，避免调用方修改到集合内部的切片与指针
func clone[T any](src *T) *T {
	dst := new(T)
	*dst = *src
	deepen(reflect.ValueOf(dst).Elem())
	return dst
}

func deepen(v reflect.Value) {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if f := v.Field(i); f.CanSet() {
				deepen(f)
			}
		}
	case reflect.Slice:
		if v.IsNil() {
			return
		}
		cp := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(cp, v)
		for i := 0; i < cp.Len(); i++ {
			deepen(cp.Index(i))
		}
		v.Set(cp)
	case reflect.Map:
		if v.IsNil() {
			return
		}
		cp := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val := reflect.New(iter.Value().Type()).Elem()
			val.Set(iter.Value())
			deepen(val)
			cp.SetMapIndex(iter.Key(), val)
		}
		v.Set(cp)
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		cp := reflect.New(v.Elem().Type())
		cp.Elem().Set(v.Elem())
		deepen(cp.Elem())
		v.Set(cp)
	}
}
