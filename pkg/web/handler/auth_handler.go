package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	errs "tour-booking/pkg/common/errors"
	usermodel "tour-booking/pkg/core/user/model"
	userservice "tour-booking/pkg/core/user/service"
	"tour-booking/pkg/web/middleware"
	"tour-booking/pkg/web/model"
)

// AuthHandler 注册、登录与密码相关接口
type AuthHandler struct {
	users  *userservice.UserService
	tokens *middleware.JWTAuth
}

func NewAuthHandler(users *userservice.UserService, tokens *middleware.JWTAuth) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

func (h *AuthHandler) Signup(c context.Context, ctx *app.RequestContext) {
	var req model.SignupReq
	if err := bindBody(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}

	user, err := h.users.Signup(c, userservice.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	h.sendToken(ctx, user, consts.StatusCreated)
}

// Login 由 hertz-contrib/jwt 的 LoginHandler 完成
func (h *AuthHandler) Login() app.HandlerFunc {
	return h.tokens.LoginHandler()
}

func (h *AuthHandler) ForgotPassword(c context.Context, ctx *app.RequestContext) {
	var req model.ForgotPasswordReq
	if err := bindBody(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}

	resetURL := func(token string) string {
		return fmt.Sprintf("%s://%s/api/v1/users/resetPassword/%s", ctx.URI().Scheme(), ctx.Host(), token)
	}
	if err := h.users.ForgotPassword(c, req.Email, resetURL); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"status":  "success",
		"message": "Token sent to email!",
	})
}

func (h *AuthHandler) ResetPassword(c context.Context, ctx *app.RequestContext) {
	var req model.ResetPasswordReq
	if err := bindBody(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}

	user, err := h.users.ResetPassword(c, ctx.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		fail(ctx, err)
		return
	}
	h.sendToken(ctx, user, consts.StatusOK)
}

func (h *AuthHandler) UpdatePassword(c context.Context, ctx *app.RequestContext) {
	me, ok := middleware.Principal(ctx)
	if !ok {
		fail(ctx, errs.Unauthorized("Your are not logged in! Please log in to get access"))
		return
	}
	var req model.UpdatePasswordReq
	if err := bindBody(ctx, &req); err != nil {
		fail(ctx, err)
		return
	}

	user, err := h.users.UpdatePassword(c, me.ID, req.CurrentPassword, req.Password, req.PasswordConfirm)
	if err != nil {
		fail(ctx, err)
		return
	}
	h.sendToken(ctx, user, consts.StatusOK)
}

func (h *AuthHandler) sendToken(ctx *app.RequestContext, user *usermodel.User, code int) {
	if err := h.tokens.SendToken(ctx, user, code); err != nil {
		fail(ctx, err)
	}
}
