package memdao

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tour-booking/pkg/common/document"
	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
)

// MemCollection 进程内集合，DB_DRIVER=memory 时使用，也是测试替身
type MemCollection[T any] struct {
	mu         sync.RWMutex
	docs       []*T
	scopes     []func(*T) bool
	unique     [][]string
	populators []dao.Populator[T]
	now        func() time.Time
}

var _ dao.Collection[struct{ document.Base }] = (*MemCollection[struct{ document.Base }])(nil)

type Option[T any] func(*MemCollection[T])

// WithScopes 读取时的可见性过滤
func WithScopes[T any](scopes ...func(*T) bool) Option[T] {
	return func(c *MemCollection[T]) {
		c.scopes = append(c.scopes, scopes...)
	}
}

// WithUnique 唯一索引，多个路径表示联合唯一
func WithUnique[T any](paths ...string) Option[T] {
	return func(c *MemCollection[T]) {
		c.unique = append(c.unique, paths)
	}
}

func WithPopulators[T any](populators ...dao.Populator[T]) Option[T] {
	return func(c *MemCollection[T]) {
		c.populators = append(c.populators, populators...)
	}
}

// WithClock 替换时间源
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *MemCollection[T]) {
		c.now = now
	}
}

func NewMemCollection[T any](opts ...Option[T]) *MemCollection[T] {
	c := &MemCollection[T]{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemCollection[T]) Find(ctx context.Context, f *query.Features) ([]T, error) {
	c.mu.RLock()
	var rows []row[T]
	for _, d := range c.docs {
		if !c.visible(d) {
			continue
		}
		view, err := jsonView(d)
		if err != nil {
			c.mu.RUnlock()
			return nil, err
		}
		rows = append(rows, row[T]{doc: clone(d), view: view})
	}
	c.mu.RUnlock()

	if f != nil {
		b := f.Apply(&memBuilder[T]{rows: rows}).(*memBuilder[T])
		if b.err != nil {
			return nil, b.err
		}
		rows = b.rows
	}

	docs := make([]T, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, *r.doc)
	}
	if err := dao.Populate(ctx, c.populators, dao.Pointers(docs), nil); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *MemCollection[T]) FindByID(ctx context.Context, id string, populate ...string) (*T, error) {
	if !document.ValidID(id) {
		return nil, &errs.CastError{Path: query.IDField, Value: id}
	}

	c.mu.RLock()
	d, _ := c.lookup(id)
	if d != nil {
		d = clone(d)
	}
	c.mu.RUnlock()

	if d == nil {
		return nil, dao.ErrNotFound
	}
	if err := dao.Populate(ctx, c.populators, []*T{d}, populate); err != nil {
		return nil, err
	}
	return d, nil
}

// FindFunc 按谓词取第一条可见文档
func (c *MemCollection[T]) FindFunc(_ context.Context, pred func(*T) bool) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if c.visible(d) && pred(d) {
			return clone(d), nil
		}
	}
	return nil, dao.ErrNotFound
}

func (c *MemCollection[T]) Create(ctx context.Context, payload map[string]any) (*T, error) {
	doc, err := dao.Decode[T](payload)
	if err != nil {
		return nil, err
	}
	if err := c.Insert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *MemCollection[T]) Insert(_ context.Context, doc *T) error {
	d, ok := any(doc).(dao.Document)
	if !ok {
		return fmt.Errorf("%T does not embed document.Base", doc)
	}
	d.AssignID()
	d.Touch(c.now())
	if err := dao.Check(doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, _ := c.lookupAny(d.GetID()); existing != nil {
		return &errs.DuplicateKeyError{Value: fmt.Sprintf("%q", d.GetID())}
	}
	if err := c.checkUnique(doc); err != nil {
		return err
	}
	c.docs = append(c.docs, clone(doc))
	return nil
}

func (c *MemCollection[T]) UpdateByID(ctx context.Context, id string, patch map[string]any) (*T, error) {
	if !document.ValidID(id) {
		return nil, &errs.CastError{Path: query.IDField, Value: id}
	}

	c.mu.Lock()
	stored, idx := c.lookup(id)
	if stored == nil {
		c.mu.Unlock()
		return nil, dao.ErrNotFound
	}

	doc := clone(stored)
	if err := dao.Merge(doc, patch); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := dao.Check(doc); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.checkUnique(doc); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	any(doc).(dao.Document).NextVersion()
	c.docs[idx] = clone(doc)
	c.mu.Unlock()

	if err := dao.Populate(ctx, c.populators, []*T{doc}, nil); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *MemCollection[T]) DeleteByID(_ context.Context, id string) (*T, error) {
	if !document.ValidID(id) {
		return nil, &errs.CastError{Path: query.IDField, Value: id}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	stored, idx := c.lookup(id)
	if stored == nil {
		return nil, dao.ErrNotFound
	}
	c.docs = append(c.docs[:idx], c.docs[idx+1:]...)
	return stored, nil
}

func (c *MemCollection[T]) Save(_ context.Context, doc *T) error {
	d, ok := any(doc).(dao.Document)
	if !ok {
		return fmt.Errorf("%T does not embed document.Base", doc)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkUnique(doc); err != nil {
		return err
	}
	if _, idx := c.lookupAny(d.GetID()); idx >= 0 {
		c.docs[idx] = clone(doc)
		return nil
	}
	d.AssignID()
	d.Touch(c.now())
	c.docs = append(c.docs, clone(doc))
	return nil
}

func (c *MemCollection[T]) DeleteAll(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int64(len(c.docs))
	c.docs = nil
	return n, nil
}

func (c *MemCollection[T]) visible(d *T) bool {
	for _, scope := range c.scopes {
		if !scope(d) {
			return false
		}
	}
	return true
}

// lookup 只返回可见文档
func (c *MemCollection[T]) lookup(id string) (*T, int) {
	d, idx := c.lookupAny(id)
	if d == nil || !c.visible(d) {
		return nil, -1
	}
	return d, idx
}

func (c *MemCollection[T]) lookupAny(id string) (*T, int) {
	for i, d := range c.docs {
		if any(d).(dao.Document).GetID() == id {
			return d, i
		}
	}
	return nil, -1
}

// checkUnique 唯一索引对所有文档生效，包括不可见文档
func (c *MemCollection[T]) checkUnique(doc *T) error {
	if len(c.unique) == 0 {
		return nil
	}
	id := any(doc).(dao.Document).GetID()
	view, err := jsonView(doc)
	if err != nil {
		return err
	}

	for _, index := range c.unique {
		key, ok := indexKey(view, index)
		if !ok {
			continue
		}
		for _, other := range c.docs {
			if any(other).(dao.Document).GetID() == id {
				continue
			}
			otherView, err := jsonView(other)
			if err != nil {
				return err
			}
			if otherKey, ok := indexKey(otherView, index); ok && otherKey == key {
				return &errs.DuplicateKeyError{Value: fmt.Sprintf("%q", key)}
			}
		}
	}
	return nil
}

func indexKey(view map[string]any, paths []string) (string, bool) {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		v, ok := lookupPath(view, p)
		if !ok || v == nil {
			return "", false
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, "-"), true
}
