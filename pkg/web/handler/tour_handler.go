package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	tourmodel "tour-booking/pkg/core/tour/model"
	tourdao "tour-booking/pkg/core/tour/repository/dao"
	tourservice "tour-booking/pkg/core/tour/service"
)

// 允许在查询串中重复出现的过滤字段
var tourWhitelist = []string{
	"duration",
	"ratingsQuantity",
	"ratingsAverage",
	"maxGroupSize",
	"difficulty",
	"price",
}

type TourHandler struct {
	*Factory[tourmodel.Tour]
	tours *tourservice.TourService
}

func NewTourHandler(repo tourdao.TourRepository, tours *tourservice.TourService) *TourHandler {
	return &TourHandler{
		Factory: NewFactory[tourmodel.Tour](repo, Hooks[tourmodel.Tour]{
			Populate:  []string{tourdao.PopulateReviews},
			Whitelist: tourWhitelist,
		}),
		tours: tours,
	}
}

// AliasTopTours /top-5-cheap 预置查询参数后交给列表接口
func (h *TourHandler) AliasTopTours(c context.Context, ctx *app.RequestContext) {
	args := ctx.QueryArgs()
	args.Set("limit", "5")
	args.Set("sort", "-ratingsAverage,price")
	args.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	ctx.Next(c)
}

func (h *TourHandler) GetTourStats(c context.Context, ctx *app.RequestContext) {
	stats, err := h.tours.Stats(c)
	if err != nil {
		fail(ctx, err)
		return
	}
	success(ctx, consts.StatusOK, "stats", stats)
}

func (h *TourHandler) GetMonthlyPlan(c context.Context, ctx *app.RequestContext) {
	plan, err := h.tours.MonthlyPlan(c, ctx.Param("year"))
	if err != nil {
		fail(ctx, err)
		return
	}
	success(ctx, consts.StatusOK, "plan", plan)
}

// GetToursWithin /tours-within/:distance/center/:latlng/unit/:unit
func (h *TourHandler) GetToursWithin(c context.Context, ctx *app.RequestContext) {
	tours, err := h.tours.Within(c, ctx.Param("distance"), ctx.Param("latlng"), ctx.Param("unit"))
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{
		"status":  "success",
		"results": len(tours),
		"data":    utils.H{"data": tours},
	})
}
