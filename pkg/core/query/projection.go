package query

import (
	"github.com/bytedance/sonic"
)

// Included 投影是否为包含模式
func (p Projection) Included() bool {
	for _, f := range p {
		if !f.Exclude {
			return true
		}
	}
	return false
}

// Mixed 同时出现包含与排除（存储层会拒绝）
func (p Projection) Mixed() bool {
	inc, exc := false, false
	for _, f := range p {
		if f.Exclude {
			exc = true
		} else {
			inc = true
		}
	}
	return inc && exc
}

// Shape 按投影裁剪单个文档的输出字段；包含模式始终保留 id
func (p Projection) Shape(doc any) (map[string]any, error) {
	data, err := sonic.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(p) == 0 || p.Mixed() {
		return m, nil
	}

	if p.Included() {
		keep := map[string]bool{IDField: true}
		for _, f := range p {
			keep[f.Field] = true
		}
		for k := range m {
			if !keep[k] {
				delete(m, k)
			}
		}
		return m, nil
	}

	for _, f := range p {
		delete(m, f.Field)
	}
	return m, nil
}

// ShapeAll 对列表中每个文档应用投影
func ShapeAll[T any](p Projection, docs []T) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(docs))
	for i := range docs {
		m, err := p.Shape(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
