package query

import (
	"regexp"
	"sort"
)

// 形如 duration[gte] 的嵌套键
var nestedKey = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]+)\]$`)

// Param 同一个查询键收集到的全部取值
type Param struct {
	Values []string          // key=value，重复出现时按顺序保存
	Ops    map[string]string // key[op]=value，同一 op 后者覆盖前者
}

// Last 返回最后一次出现的值（参数污染时以最后一个为准）
func (p Param) Last() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[len(p.Values)-1]
}

// Raw 是 HTTP 查询串的原始映射：字段名 -> 值或 {op -> 值}
type Raw map[string]Param

// Add 追加一个查询参数，识别 field[op] 形式
func (r Raw) Add(key, value string) {
	field, op := key, ""
	if m := nestedKey.FindStringSubmatch(key); m != nil {
		field, op = m[1], m[2]
	}

	p := r[field]
	if op == "" {
		p.Values = append(p.Values, value)
	} else {
		if p.Ops == nil {
			p.Ops = make(map[string]string)
		}
		p.Ops[op] = value
	}
	r[field] = p
}

// Set 覆盖某个键的取值（用于别名路由预填查询条件）
func (r Raw) Set(key, value string) {
	r[key] = Param{Values: []string{value}}
}

// Get 返回键的最后一个普通取值
func (r Raw) Get(key string) string {
	return r[key].Last()
}

// Clone 深拷贝，翻译过程不修改原始映射
func (r Raw) Clone() Raw {
	out := make(Raw, len(r))
	for k, p := range r {
		cp := Param{Values: append([]string(nil), p.Values...)}
		if p.Ops != nil {
			cp.Ops = make(map[string]string, len(p.Ops))
			for op, v := range p.Ops {
				cp.Ops[op] = v
			}
		}
		out[k] = cp
	}
	return out
}

// keys 返回排好序的键，保证翻译结果稳定
func (r Raw) keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
