package impl

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
)

// gormBuilder 把 query.Features 翻译成 SQL 子句
// 字段名使用对外的 json 名称，按 schema 映射到列名
type gormBuilder struct {
	db     *gorm.DB
	fields map[string]*schema.Field
	err    error
}

var _ query.Builder = (*gormBuilder)(nil)

func (b *gormBuilder) Filter(conds []query.Condition) query.Builder {
	for _, c := range conds {
		if b.err != nil {
			return b
		}
		field, ok := b.fields[c.Field]
		if !ok {
			// 不存在的字段不匹配任何文档
			b.db = b.db.Where("1 = 0")
			continue
		}
		col := clause.Column{Name: field.DBName}

		if field.DataType == "json" {
			b.jsonFilter(col, c)
			continue
		}

		if c.Op == query.OpIn {
			vals := make([]any, 0, len(c.Values))
			for _, raw := range c.Values {
				v, err := coerce(c.Field, field, raw)
				if err != nil {
					b.err = err
					return b
				}
				vals = append(vals, v)
			}
			b.db = b.db.Where(clause.IN{Column: col, Values: vals})
			continue
		}

		v, err := coerce(c.Field, field, c.Value)
		if err != nil {
			b.err = err
			return b
		}
		var expr clause.Expression
		switch c.Op {
		case query.OpEq:
			expr = clause.Eq{Column: col, Value: v}
		case query.OpGte:
			expr = clause.Gte{Column: col, Value: v}
		case query.OpGt:
			expr = clause.Gt{Column: col, Value: v}
		case query.OpLte:
			expr = clause.Lte{Column: col, Value: v}
		case query.OpLt:
			expr = clause.Lt{Column: col, Value: v}
		default:
			b.err = errs.BadRequest(fmt.Sprintf("Unsupported filter operator: %s", c.Op))
			return b
		}
		b.db = b.db.Where(expr)
	}
	return b
}

// jsonFilter 数组列：等值表示“包含该元素”
func (b *gormBuilder) jsonFilter(col clause.Column, c query.Condition) {
	values := c.Values
	switch c.Op {
	case query.OpEq:
		values = []string{c.Value}
	case query.OpIn:
	default:
		b.err = errs.BadRequest(fmt.Sprintf("Unsupported filter operator for %s: %s", c.Field, c.Op))
		return
	}

	exprs := make([]clause.Expression, 0, len(values))
	for _, v := range values {
		exprs = append(exprs, clause.Expr{SQL: "JSON_CONTAINS(?, JSON_QUOTE(?))", Vars: []any{col, v}})
	}
	b.db = b.db.Where(clause.Or(exprs...))
}

func (b *gormBuilder) Sort(fields []query.SortField) query.Builder {
	if b.err != nil {
		return b
	}
	for _, s := range fields {
		// 未知字段的排序不生效
		for _, name := range b.columns(s.Field) {
			b.db = b.db.Order(clause.OrderByColumn{Column: clause.Column{Name: name}, Desc: s.Desc})
		}
	}
	return b
}

func (b *gormBuilder) Project(p query.Projection) query.Builder {
	if b.err != nil || len(p) == 0 {
		return b
	}
	if p.Mixed() {
		b.err = errs.BadRequest("Projection cannot have a mix of inclusion and exclusion.")
		return b
	}

	var cols []string
	for _, f := range p {
		cols = append(cols, b.columns(f.Field)...)
	}
	if p.Included() {
		// 主键始终返回
		b.db = b.db.Select(append([]string{"id"}, cols...))
		return b
	}
	if len(cols) > 0 {
		b.db = b.db.Omit(cols...)
	}
	return b
}

func (b *gormBuilder) Paginate(skip, limit int) query.Builder {
	if b.err != nil {
		return b
	}
	if limit > 0 {
		b.db = b.db.Limit(limit)
	}
	if skip > 0 {
		b.db = b.db.Offset(skip)
	}
	return b
}

// columns 字段路径对应的列；嵌入结构体的路径展开为全部子列
func (b *gormBuilder) columns(path string) []string {
	if f, ok := b.fields[path]; ok {
		return []string{f.DBName}
	}
	var cols []string
	prefix := path + "."
	for name, f := range b.fields {
		if strings.HasPrefix(name, prefix) {
			cols = append(cols, f.DBName)
		}
	}
	return cols
}

// coerce 按列类型转换查询串里的值，失败时返回 CastError
func coerce(path string, f *schema.Field, raw string) (any, error) {
	cast := func(err error) error {
		return &errs.CastError{Path: path, Value: raw, Err: err}
	}

	switch f.DataType {
	case schema.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, cast(err)
		}
		return v, nil
	case schema.Int, schema.Uint, schema.Float:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, cast(err)
		}
		return v, nil
	case schema.Time:
		v, err := parseTime(raw)
		if err != nil {
			return nil, cast(err)
		}
		return v, nil
	default:
		return raw, nil
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// fieldPaths 建立 json 路径 -> 列 的映射，隐藏字段（json:"-"）不可查询
func fieldPaths(s *schema.Schema) map[string]*schema.Field {
	out := make(map[string]*schema.Field, len(s.Fields))
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		if path, ok := jsonPath(s.ModelType, f); ok {
			out[path] = f
		}
	}
	return out
}

func jsonPath(modelType reflect.Type, f *schema.Field) (string, bool) {
	name := jsonName(f.Tag, f.Name)
	if name == "" {
		return "", false
	}
	if len(f.BindNames) < 2 {
		return name, true
	}
	// 匿名嵌入（document.Base）在 json 中被提升，具名嵌入则成为子路径
	parent, ok := modelType.FieldByName(f.BindNames[0])
	if !ok || parent.Anonymous {
		return name, true
	}
	prefix := jsonName(parent.Tag, parent.Name)
	if prefix == "" {
		return "", false
	}
	return prefix + "." + name, true
}

func jsonName(tag reflect.StructTag, fallback string) string {
	name := strings.Split(tag.Get("json"), ",")[0]
	switch name {
	case "-":
		return ""
	case "":
		return fallback
	}
	return name
}
