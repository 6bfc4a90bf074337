package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	errs "tour-booking/pkg/common/errors"
	usermodel "tour-booking/pkg/core/user/model"
	userdao "tour-booking/pkg/core/user/repository/dao"
	userservice "tour-booking/pkg/core/user/service"
	"tour-booking/pkg/web/middleware"
)

// UserHandler 管理员的用户增删改查与当前用户的资料维护
type UserHandler struct {
	*Factory[usermodel.User]
	users *userservice.UserService
}

func NewUserHandler(repo userdao.UserRepository, users *userservice.UserService) *UserHandler {
	return &UserHandler{
		Factory: NewFactory[usermodel.User](repo, Hooks[usermodel.User]{}),
		users:   users,
	}
}

// CreateUser 用户只能通过 /signup 创建
func (h *UserHandler) CreateUser(c context.Context, ctx *app.RequestContext) {
	fail(ctx, errs.New("This route is not defined! Please use /signup instead", consts.StatusInternalServerError))
}

func (h *UserHandler) GetMe(c context.Context, ctx *app.RequestContext) {
	me, ok := middleware.Principal(ctx)
	if !ok {
		fail(ctx, errs.Unauthorized("Your are not logged in! Please log in to get access"))
		return
	}
	doc, err := h.coll.FindByID(c, me.ID)
	if err != nil {
		fail(ctx, notFound(err))
		return
	}
	success(ctx, consts.StatusOK, "data", doc)
}

func (h *UserHandler) UpdateMe(c context.Context, ctx *app.RequestContext) {
	me, ok := middleware.Principal(ctx)
	if !ok {
		fail(ctx, errs.Unauthorized("Your are not logged in! Please log in to get access"))
		return
	}
	payload, err := bodyMap(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	updated, err := h.users.UpdateMe(c, me.ID, payload)
	if err != nil {
		fail(ctx, notFound(err))
		return
	}
	success(ctx, consts.StatusOK, "user", updated)
}

func (h *UserHandler) DeleteMe(c context.Context, ctx *app.RequestContext) {
	me, ok := middleware.Principal(ctx)
	if !ok {
		fail(ctx, errs.Unauthorized("Your are not logged in! Please log in to get access"))
		return
	}
	if err := h.users.DeleteMe(c, me.ID); err != nil {
		fail(ctx, notFound(err))
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}
