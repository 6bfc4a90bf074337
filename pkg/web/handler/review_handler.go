package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"tour-booking/pkg/core/query"
	reviewmodel "tour-booking/pkg/core/review/model"
	reviewdao "tour-booking/pkg/core/review/repository/dao"
	reviewservice "tour-booking/pkg/core/review/service"
	"tour-booking/pkg/web/middleware"
)

// TourIDKey 嵌套路由 /tours/:id/reviews 中的旅游线路标识
const TourIDKey = "tourId"

type ReviewHandler struct {
	*Factory[reviewmodel.Review]
}

func NewReviewHandler(repo reviewdao.ReviewRepository, ratings *reviewservice.RatingService) *ReviewHandler {
	return &ReviewHandler{
		Factory: NewFactory[reviewmodel.Review](repo, Hooks[reviewmodel.Review]{
			Scope: func(ctx *app.RequestContext, f *query.Features) {
				if tourID := ctx.GetString(TourIDKey); tourID != "" {
					f.Scope("tour", tourID)
				}
			},
			Prepare:    setTourUserIDs,
			AfterWrite: ratings.AfterWrite,
		}),
	}
}

// NestedTour 把路径中的线路标识转存到上下文，供评价处理器使用
func NestedTour() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		ctx.Set(TourIDKey, ctx.Param("id"))
		ctx.Next(c)
	}
}

// setTourUserIDs 载荷未指定时 tour 取路径参数，user 取当前用户
func setTourUserIDs(ctx *app.RequestContext, payload map[string]any) {
	if _, ok := payload["tour"]; !ok {
		if tourID := ctx.GetString(TourIDKey); tourID != "" {
			payload["tour"] = tourID
		}
	}
	if _, ok := payload["user"]; !ok {
		if user, ok := middleware.Principal(ctx); ok {
			payload["user"] = user.ID
		}
	}
}
