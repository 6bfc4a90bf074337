package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol"
	hertzjwt "github.com/hertz-contrib/jwt"

	"tour-booking/pkg/common/config"
	errs "tour-booking/pkg/common/errors"
	usermodel "tour-booking/pkg/core/user/model"
)

const (
	CookieName = "jwt"

	claimID           = "id"
	claimIssuedAt     = "iat"
	claimOrigIssuedAt = "orig_iat"

	loginUserKey  = "login_user"
	loginErrorKey = "login_error"
)

// Authenticator 登录凭证校验
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*usermodel.User, error)
}

// JWTAuth 令牌签发：登录走 hertz-contrib/jwt 的 LoginHandler，
// 注册、重置密码、修改密码直接调用 TokenGenerator
type JWTAuth struct {
	mw  *hertzjwt.HertzJWTMiddleware
	cfg *config.Config
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewJWTAuth(cfg *config.Config, auth Authenticator) (*JWTAuth, error) {
	jwtCfg := cfg.Middleware.JWT
	now := time.Now

	mw, err := hertzjwt.New(&hertzjwt.HertzJWTMiddleware{
		Realm:            jwtCfg.Realm,
		SigningAlgorithm: jwtCfg.SigningMethod,
		Key:              []byte(jwtCfg.Secret),
		Timeout:          jwtCfg.ExpireDuration,
		TimeFunc:         now,
		IdentityKey:      claimID,
		TokenLookup:      "header:Authorization,cookie:" + CookieName,
		TokenHeadName:    "Bearer",

		SendCookie:     true,
		CookieName:     CookieName,
		CookieMaxAge:   jwtCfg.CookieExpires,
		CookieHTTPOnly: true,
		SecureCookie:   cfg.IsProd(),
		CookieSameSite: protocol.CookieSameSiteLaxMode,

		Authenticator: func(c context.Context, ctx *app.RequestContext) (interface{}, error) {
			var req loginReq
			if body := ctx.Request.Body(); len(body) > 0 {
				if err := sonic.Unmarshal(body, &req); err != nil {
					loginErr := errs.Wrap(err, "Invalid request body", 400)
					ctx.Set(loginErrorKey, loginErr)
					return nil, loginErr
				}
			}
			user, err := auth.Login(c, req.Email, req.Password)
			if err != nil {
				ctx.Set(loginErrorKey, err)
				return nil, err
			}
			ctx.Set(loginUserKey, user)
			return user, nil
		},
		PayloadFunc: func(data interface{}) hertzjwt.MapClaims {
			if u, ok := data.(*usermodel.User); ok {
				return hertzjwt.MapClaims{
					claimID:       u.ID,
					claimIssuedAt: now().Unix(),
				}
			}
			return hertzjwt.MapClaims{}
		},
		Unauthorized: func(c context.Context, ctx *app.RequestContext, code int, message string) {
			if v, ok := ctx.Get(loginErrorKey); ok {
				if err, ok := v.(error); ok {
					fail(ctx, err)
					return
				}
			}
			fail(ctx, errs.New(message, code))
		},
		LoginResponse: func(c context.Context, ctx *app.RequestContext, code int, token string, expire time.Time) {
			v, _ := ctx.Get(loginUserKey)
			user, _ := v.(*usermodel.User)
			ctx.JSON(code, tokenBody(token, user))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init jwt middleware: %w", err)
	}
	return &JWTAuth{mw: mw, cfg: cfg}, nil
}

// LoginHandler POST /users/login
func (a *JWTAuth) LoginHandler() app.HandlerFunc {
	return a.mw.LoginHandler
}

// SendToken 签发令牌，写入 http-only cookie，并按统一格式返回用户
func (a *JWTAuth) SendToken(ctx *app.RequestContext, user *usermodel.User, statusCode int) error {
	token, _, err := a.mw.TokenGenerator(user)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	maxAge := int(a.cfg.Middleware.JWT.CookieExpires / time.Second)
	ctx.SetCookie(CookieName, token, maxAge, "/", "", protocol.CookieSameSiteLaxMode, a.cfg.IsProd(), true)
	ctx.JSON(statusCode, tokenBody(token, user))
	return nil
}

func tokenBody(token string, user *usermodel.User) utils.H {
	return utils.H{
		"status": "success",
		"token":  token,
		"data":   utils.H{"user": user},
	}
}
