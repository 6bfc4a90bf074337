package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"tour-booking/pkg/common/document"
	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
)

// GormCollection 基于 gorm 的通用集合实现
type GormCollection[T any] struct {
	db         *gorm.DB
	fields     map[string]*schema.Field
	scopes     []func(*gorm.DB) *gorm.DB
	populators []dao.Populator[T]
	now        func() time.Time
}

var _ dao.Collection[struct{ document.Base }] = (*GormCollection[struct{ document.Base }])(nil)

type Option[T any] func(*GormCollection[T])

// WithScopes 每次读取（含更新、删除前的读取）都会附加的条件
func WithScopes[T any](scopes ...func(*gorm.DB) *gorm.DB) Option[T] {
	return func(c *GormCollection[T]) {
		c.scopes = append(c.scopes, scopes...)
	}
}

// WithPopulators 查询后的引用展开
func WithPopulators[T any](populators ...dao.Populator[T]) Option[T] {
	return func(c *GormCollection[T]) {
		c.populators = append(c.populators, populators...)
	}
}

func NewGormCollection[T any](db *gorm.DB, opts ...Option[T]) (*GormCollection[T], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse model schema: %w", err)
	}

	c := &GormCollection[T]{
		db:     db,
		fields: fieldPaths(stmt.Schema),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DB 供具体资源仓库编写专用查询
func (c *GormCollection[T]) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Model(new(T)).Scopes(c.scopes...)
}

func (c *GormCollection[T]) Find(ctx context.Context, f *query.Features) ([]T, error) {
	tx := c.DB(ctx)
	if f != nil {
		b := f.Apply(&gormBuilder{db: tx, fields: c.fields}).(*gormBuilder)
		if b.err != nil {
			return nil, b.err
		}
		tx = b.db
	}

	var docs []T
	if err := tx.Find(&docs).Error; err != nil {
		return nil, wrapGormError(err)
	}
	if err := dao.Populate(ctx, c.populators, dao.Pointers(docs), nil); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *GormCollection[T]) FindByID(ctx context.Context, id string, populate ...string) (*T, error) {
	if !document.ValidID(id) {
		return nil, &errs.CastError{Path: query.IDField, Value: id}
	}

	var doc T
	if err := c.DB(ctx).Where(idEq(id)).Take(&doc).Error; err != nil {
		return nil, wrapGormError(err)
	}
	if err := dao.Populate(ctx, c.populators, []*T{&doc}, populate); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindOne 按任意条件取第一条，供资源仓库使用
func (c *GormCollection[T]) FindOne(ctx context.Context, where ...clause.Expression) (*T, error) {
	var doc T
	if err := c.DB(ctx).Clauses(clause.Where{Exprs: where}).Take(&doc).Error; err != nil {
		return nil, wrapGormError(err)
	}
	return &doc, nil
}

func (c *GormCollection[T]) Create(ctx context.Context, payload map[string]any) (*T, error) {
	doc, err := dao.Decode[T](payload)
	if err != nil {
		return nil, err
	}
	if err := c.Insert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert 写入一个已构造好的文档（校验照常执行）
func (c *GormCollection[T]) Insert(ctx context.Context, doc *T) error {
	d, ok := any(doc).(dao.Document)
	if !ok {
		return fmt.Errorf("%T does not embed document.Base", doc)
	}
	d.AssignID()
	d.Touch(c.now())
	if err := dao.Check(doc); err != nil {
		return err
	}
	return wrapGormError(c.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error)
}

// UpdateByID 行锁读取 -> 合并 -> 校验 -> 带版本号写回
func (c *GormCollection[T]) UpdateByID(ctx context.Context, id string, patch map[string]any) (*T, error) {
	if !document.ValidID(id) {
		return nil, &errs.CastError{Path: query.IDField, Value: id}
	}

	var doc T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(new(T)).Scopes(c.scopes...).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(idEq(id)).
			Take(&doc).Error; err != nil {
			return wrapGormError(err)
		}

		if err := dao.Merge(&doc, patch); err != nil {
			return err
		}
		if err := dao.Check(&doc); err != nil {
			return err
		}

		d := any(&doc).(dao.Document)
		prev := d.CurrentVersion()
		d.NextVersion()

		result := tx.Model(&doc).
			Where("version = ?", prev).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(&doc)
		if result.Error != nil {
			return fmt.Errorf("%w: update failed", wrapGormError(result.Error))
		}
		if result.RowsAffected == 0 {
			return dao.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := dao.Populate(ctx, c.populators, []*T{&doc}, nil); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *GormCollection[T]) DeleteByID(ctx context.Context, id string) (*T, error) {
	if !document.ValidID(id) {
		return nil, &errs.CastError{Path: query.IDField, Value: id}
	}

	var doc T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(new(T)).Scopes(c.scopes...).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(idEq(id)).
			Take(&doc).Error; err != nil {
			return wrapGormError(err)
		}
		return wrapGormError(tx.Delete(&doc).Error)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *GormCollection[T]) Save(ctx context.Context, doc *T) error {
	d, ok := any(doc).(dao.Document)
	if !ok {
		return fmt.Errorf("%T does not embed document.Base", doc)
	}
	if d.GetID() == "" {
		return errors.New("save: document has no id")
	}
	err := c.db.WithContext(ctx).Omit(clause.Associations).Save(doc).Error
	return wrapGormError(err)
}

// DeleteAll 清空集合（数据导入工具使用）
func (c *GormCollection[T]) DeleteAll(ctx context.Context) (int64, error) {
	result := c.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(new(T))
	return result.RowsAffected, wrapGormError(result.Error)
}

func idEq(id string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "id"}, Value: id}
}
