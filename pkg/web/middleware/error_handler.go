package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"tour-booking/pkg/common/config"
	errs "tour-booking/pkg/common/errors"
)

// ErrorHandler 处理链上唯一的错误出口：处理器只负责 c.Error + Abort
func ErrorHandler(cfg *config.Config) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		ctx.Next(c)

		last := ctx.Errors.Last()
		if last == nil {
			return
		}
		renderError(c, ctx, cfg, last.Err)
	}
}

// NotFoundHandler 未匹配的路由
func NotFoundHandler() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		fail(ctx, errs.NotFound(fmt.Sprintf("Can't find %s on this server!", ctx.Request.URI().RequestURI())))
	}
}

func renderError(c context.Context, ctx *app.RequestContext, cfg *config.Config, err error) {
	if cfg.IsProd() {
		sendErrorProd(c, ctx, err)
		return
	}
	sendErrorDev(c, ctx, err)
}

// 开发环境：原样输出错误、信息与调用栈
func sendErrorDev(c context.Context, ctx *app.RequestContext, err error) {
	appErr := errs.Normalize(err)
	hlog.CtxErrorf(c, "ERROR %d %s: %v", appErr.StatusCode, ctx.Path(), err)

	ctx.AbortWithStatusJSON(appErr.StatusCode, utils.H{
		"status":  appErr.Status,
		"message": appErr.Message,
		"error": utils.H{
			"statusCode":    appErr.StatusCode,
			"status":        appErr.Status,
			"isOperational": appErr.IsOperational,
			"type":          fmt.Sprintf("%T", cause(appErr)),
			"detail":        err.Error(),
		},
		"stack": strings.Split(strings.TrimSpace(appErr.Stack), "\n"),
	})
}

// 生产环境：已知错误改写为客户端安全信息，其余一律隐藏
func sendErrorProd(c context.Context, ctx *app.RequestContext, err error) {
	appErr := errs.ForClient(err)

	if appErr.IsOperational {
		if appErr.StatusCode >= 500 {
			hlog.CtxErrorf(c, "ERROR %d %s: %v", appErr.StatusCode, ctx.Path(), err)
		} else {
			hlog.CtxDebugf(c, "request failed %d %s: %s", appErr.StatusCode, ctx.Path(), appErr.Message)
		}
		ctx.AbortWithStatusJSON(appErr.StatusCode, utils.H{
			"status":  appErr.Status,
			"message": appErr.Message,
		})
		return
	}

	hlog.CtxErrorf(c, "ERROR %s: %v\n%s", ctx.Path(), err, appErr.Stack)
	ctx.AbortWithStatusJSON(500, utils.H{
		"status":  errs.StatusError,
		"message": "Something went wrong!",
	})
}

func cause(appErr *errs.AppError) error {
	if appErr.Err != nil {
		return appErr.Err
	}
	return appErr
}
