package handler

import (
	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
)

// fail 记录错误并终止处理链，由 middleware.ErrorHandler 统一输出
func fail(ctx *app.RequestContext, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}

// success {status:"success", data:{<key>: data}}
func success(ctx *app.RequestContext, code int, key string, data any) {
	ctx.JSON(code, utils.H{
		"status": "success",
		"data":   utils.H{key: data},
	})
}

// bindBody 解析 JSON 请求体；空请求体不是错误
func bindBody(ctx *app.RequestContext, v any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return errs.Wrap(err, "Invalid request body", 400)
	}
	return nil
}

// bodyMap 请求体作为字段映射，交给存储层合并
func bodyMap(ctx *app.RequestContext) (map[string]any, error) {
	payload := make(map[string]any)
	if err := bindBody(ctx, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = make(map[string]any)
	}
	return payload, nil
}

// rawQuery 按出现顺序收集查询参数，保留重复键
func rawQuery(ctx *app.RequestContext) query.Raw {
	raw := query.Raw{}
	ctx.QueryArgs().VisitAll(func(key, value []byte) {
		raw.Add(string(key), string(value))
	})
	return raw
}
