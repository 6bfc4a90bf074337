package query

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100

	VersionField   = "__v"
	CreatedAtField = "createdAt"
	IDField        = "id"

	maxPageValue = math.MaxInt32
)

// 保留键永远不会作为数据过滤条件
var reservedKeys = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

type Operator string

const (
	OpEq  Operator = "eq"
	OpGte Operator = "gte"
	OpGt  Operator = "gt"
	OpLte Operator = "lte"
	OpLt  Operator = "lt"
	OpIn  Operator = "in"
)

// 可被改写为比较运算符的嵌套键
var comparisonOps = map[string]Operator{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

// Condition 单个过滤条件，值保持字符串原样，由存储层负责类型转换
type Condition struct {
	Field  string
	Op     Operator
	Value  string
	Values []string // 仅 OpIn 使用
}

type SortField struct {
	Field string
	Desc  bool
}

type ProjectionField struct {
	Field   string
	Exclude bool
}

// Projection 字段投影，包含与排除互斥（由存储层校验）
type Projection []ProjectionField

// Features 由查询串翻译得到的有序操作
type Features struct {
	Filter     []Condition
	Sort       []SortField
	Projection Projection
	Page       int
	Limit      int
	Skip       int
}

// Builder 抽象的查询构造器，由具体存储实现
type Builder interface {
	Filter(conds []Condition) Builder
	Sort(fields []SortField) Builder
	Project(p Projection) Builder
	Paginate(skip, limit int) Builder
}

type options struct {
	whitelist map[string]bool
}

type Option func(*options)

// WithWhitelist 允许重复出现的过滤字段，多个取值翻译为 IN
func WithWhitelist(fields ...string) Option {
	return func(o *options) {
		for _, f := range fields {
			o.whitelist[f] = true
		}
	}
}

// Translate 把查询串映射翻译为 过滤 -> 排序 -> 投影 -> 分页 四个操作
func Translate(raw Raw, opts ...Option) *Features {
	o := options{whitelist: make(map[string]bool)}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Features{}
	f.Filter = filter(raw.Clone(), o.whitelist)
	f.Sort = sorting(raw.Get("sort"))
	f.Projection = limitFields(raw.Get("fields"))
	f.Page, f.Limit, f.Skip = paginate(raw.Get("page"), raw.Get("limit"))
	return f
}

// Apply 按固定顺序把操作作用到构造器上
func (f *Features) Apply(b Builder) Builder {
	return b.Filter(f.Filter).
		Sort(f.Sort).
		Project(f.Projection).
		Paginate(f.Skip, f.Limit)
}

// Scope 注入环境过滤条件（例如嵌套路由的外键），优先于查询串条件
func (f *Features) Scope(field, value string) {
	f.Filter = append([]Condition{{Field: field, Op: OpEq, Value: value}}, f.Filter...)
}

func filter(queryObj Raw, whitelist map[string]bool) []Condition {
	for key := range reservedKeys {
		delete(queryObj, key)
	}

	var conds []Condition
	for _, field := range queryObj.keys() {
		p := queryObj[field]

		switch {
		case len(p.Values) > 1 && whitelist[field]:
			conds = append(conds, Condition{Field: field, Op: OpIn, Values: p.Values})
		case len(p.Values) > 0:
			conds = append(conds, Condition{Field: field, Op: OpEq, Value: p.Last()})
		}

		ops := make([]string, 0, len(p.Ops))
		for op := range p.Ops {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			operator, ok := comparisonOps[op]
			if !ok {
				// 未知运算符原样透传，由存储层拒绝
				operator = Operator(op)
			}
			conds = append(conds, Condition{Field: field, Op: operator, Value: p.Ops[op]})
		}
	}
	return conds
}

func sorting(sortBy string) []SortField {
	var fields []SortField
	for _, tok := range tokens(sortBy) {
		if strings.HasPrefix(tok, "-") {
			if name := strings.TrimPrefix(tok, "-"); name != "" {
				fields = append(fields, SortField{Field: name, Desc: true})
			}
			continue
		}
		fields = append(fields, SortField{Field: tok})
	}
	if len(fields) == 0 {
		// 默认按创建时间倒序
		return []SortField{{Field: CreatedAtField, Desc: true}}
	}
	return fields
}

func limitFields(fieldList string) Projection {
	var p Projection
	for _, tok := range tokens(fieldList) {
		if strings.HasPrefix(tok, "-") {
			if name := strings.TrimPrefix(tok, "-"); name != "" {
				p = append(p, ProjectionField{Field: name, Exclude: true})
			}
			continue
		}
		p = append(p, ProjectionField{Field: tok})
	}
	if len(p) == 0 {
		// 默认排除内部版本字段
		return Projection{{Field: VersionField, Exclude: true}}
	}
	return p
}

func paginate(pageStr, limitStr string) (page, limit, skip int) {
	page = lenientInt(pageStr, DefaultPage)
	limit = lenientInt(limitStr, DefaultLimit)
	skip = (page - 1) * limit
	return page, limit, skip
}

// tokens 逗号分隔，同时容忍空白（"-ratingsAverage, price" 同样有效）
func tokens(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		out = append(out, strings.Fields(part)...)
	}
	return out
}

// lenientInt 宽松数值解析：非数字、NaN、<=0 都回落到默认值
func lenientInt(s string, def int) int {
	n, ok := looseNumber(s)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return def
	}
	if n > maxPageValue {
		n = maxPageValue
	}
	i := int(math.Trunc(n))
	if i <= 0 {
		return def
	}
	return i
}

// looseNumber 与 value*1 的转换规则一致：空串为0，支持科学计数法和 0x/0o/0b 前缀
func looseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(i), true
	}
	return math.NaN(), false
}
