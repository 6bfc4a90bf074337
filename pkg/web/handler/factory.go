package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
)

const notFoundMessage = "No document found with that ID"

// Hooks 资源差异化的扩展点
type Hooks[T any] struct {
	// Scope 列表查询前注入环境过滤条件（例如嵌套路由的 tourId）
	Scope func(ctx *app.RequestContext, f *query.Features)
	// Prepare 创建前补齐载荷
	Prepare func(ctx *app.RequestContext, payload map[string]any)
	// Populate 查询单个文档时展开的路径
	Populate []string
	// Whitelist 允许重复出现的过滤字段
	Whitelist []string
	// AfterWrite 创建、更新、删除成功后的触发器
	AfterWrite func(c context.Context, doc *T)
}

// Factory 对任意集合提供统一的增删改查处理器
type Factory[T any] struct {
	coll  dao.Collection[T]
	hooks Hooks[T]
}

func NewFactory[T any](coll dao.Collection[T], hooks Hooks[T]) *Factory[T] {
	return &Factory[T]{coll: coll, hooks: hooks}
}

// GetAll GET / -> {status, results, data:{data}}
func (f *Factory[T]) GetAll(c context.Context, ctx *app.RequestContext) {
	features := query.Translate(rawQuery(ctx), query.WithWhitelist(f.hooks.Whitelist...))
	if f.hooks.Scope != nil {
		f.hooks.Scope(ctx, features)
	}

	docs, err := f.coll.Find(c, features)
	if err != nil {
		fail(ctx, err)
		return
	}
	shaped, err := query.ShapeAll(features.Projection, docs)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"status":  "success",
		"results": len(shaped),
		"data":    utils.H{"data": shaped},
	})
}

// GetOne GET /:id
func (f *Factory[T]) GetOne(c context.Context, ctx *app.RequestContext) {
	doc, err := f.coll.FindByID(c, ctx.Param("id"), f.hooks.Populate...)
	if err != nil {
		fail(ctx, notFound(err))
		return
	}
	success(ctx, consts.StatusOK, "data", doc)
}

// CreateOne POST / -> 201
func (f *Factory[T]) CreateOne(c context.Context, ctx *app.RequestContext) {
	payload, err := bodyMap(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}
	if f.hooks.Prepare != nil {
		f.hooks.Prepare(ctx, payload)
	}

	doc, err := f.coll.Create(c, payload)
	if err != nil {
		fail(ctx, err)
		return
	}
	f.afterWrite(c, doc)
	success(ctx, consts.StatusCreated, "data", doc)
}

// UpdateOne PATCH /:id，合并后的文档重新校验
func (f *Factory[T]) UpdateOne(c context.Context, ctx *app.RequestContext) {
	patch, err := bodyMap(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	doc, err := f.coll.UpdateByID(c, ctx.Param("id"), patch)
	if err != nil {
		fail(ctx, notFound(err))
		return
	}
	f.afterWrite(c, doc)
	success(ctx, consts.StatusOK, "data", doc)
}

// DeleteOne DELETE /:id -> 204
func (f *Factory[T]) DeleteOne(c context.Context, ctx *app.RequestContext) {
	doc, err := f.coll.DeleteByID(c, ctx.Param("id"))
	if err != nil {
		fail(ctx, notFound(err))
		return
	}
	f.afterWrite(c, doc)
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (f *Factory[T]) afterWrite(c context.Context, doc *T) {
	if f.hooks.AfterWrite != nil && doc != nil {
		f.hooks.AfterWrite(c, doc)
	}
}

// notFound 把存储层的未找到改写为 404
func notFound(err error) error {
	if errors.Is(err, dao.ErrNotFound) {
		return errs.NotFound(notFoundMessage)
	}
	return err
}
