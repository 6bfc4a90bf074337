package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/golang-jwt/jwt/v5"

	"tour-booking/pkg/common/config"
	errs "tour-booking/pkg/common/errors"
	usermodel "tour-booking/pkg/core/user/model"
)

// PrincipalKey 请求上下文中当前用户的键
const PrincipalKey = "principal"

// PrincipalLoader 按令牌中的标识符与签发时间加载当前用户
type PrincipalLoader interface {
	Principal(ctx context.Context, id string, issuedAt int64) (*usermodel.User, error)
}

// Protect 校验 Bearer 令牌并把当前用户挂到请求上
func Protect(loader PrincipalLoader, jwtCfg config.JWTAuthConfig) app.HandlerFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtCfg.Secret), nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwtCfg.SigningMethod}))

	return func(c context.Context, ctx *app.RequestContext) {
		token := bearerToken(ctx)
		if token == "" {
			fail(ctx, errs.Unauthorized("Your are not logged in! Please log in to get access"))
			return
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
			fail(ctx, tokenError(err))
			return
		}

		id, _ := claims[claimID].(string)
		if id == "" {
			fail(ctx, errs.Wrap(jwt.ErrTokenInvalidClaims, "Invalid token. Please log in again", 401))
			return
		}

		user, err := loader.Principal(c, id, issuedAt(claims))
		if err != nil {
			fail(ctx, err)
			return
		}

		ctx.Set(PrincipalKey, user)
		ctx.Next(c)
	}
}

// RestrictTo 当前用户的角色不在允许列表中时返回 403
func RestrictTo(roles ...usermodel.Role) app.HandlerFunc {
	allowed := make(map[usermodel.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c context.Context, ctx *app.RequestContext) {
		user, ok := Principal(ctx)
		if !ok || !allowed[user.Role] {
			fail(ctx, errs.Forbidden("You do not have permission to perform this action."))
			return
		}
		ctx.Next(c)
	}
}

// Principal 取出 Protect 挂载的当前用户
func Principal(ctx *app.RequestContext) (*usermodel.User, bool) {
	v, ok := ctx.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*usermodel.User)
	return user, ok && user != nil
}

// bearerToken Authorization: Bearer <token>，其次读取 jwt cookie
func bearerToken(ctx *app.RequestContext) string {
	header := string(ctx.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer") {
		if parts := strings.Fields(header); len(parts) == 2 {
			return parts[1]
		}
	}
	return string(ctx.Cookie(CookieName))
}

func tokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return errs.Wrap(err, "Your token has expired! Please log in again", 401)
	}
	return errs.Wrap(err, "Invalid token. Please log in again", 401)
}

// issuedAt 优先使用 iat，缺失时回退到 orig_iat
func issuedAt(claims jwt.MapClaims) int64 {
	for _, key := range []string{claimIssuedAt, claimOrigIssuedAt} {
		switch v := claims[key].(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		case string:
			var n int64
			if _, err := fmt.Sscan(v, &n); err == nil {
				return n
			}
		}
	}
	return 0
}
