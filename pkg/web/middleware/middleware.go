package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/cors"
	"golang.org/x/time/rate"

	"tour-booking/pkg/common/config"
	errs "tour-booking/pkg/common/errors"
)

// LoggerMiddleware 请求日志，仅开发环境挂载
func LoggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c) // 放行到后续处理器
		latency := time.Since(start)

		hlog.CtxInfof(c, "| %3d | %13v | %15s | %-7s | %s | UA=%s",
			ctx.Response.StatusCode(),
			latency,
			ctx.ClientIP(),
			ctx.Method(),
			ctx.Path(),
			ctx.GetHeader("User-Agent"),
		)
	}
}

/*
	启动时指定环境变量
	export APP_ENV=production
	go run ./cmd/web
*/

// RecoveryMiddleware 捕获 panic，按非预期错误交给统一的错误输出
func RecoveryMiddleware(cfg *config.Config) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				hlog.CtxErrorf(c, "[PANIC RECOVERED] %v", err)
				renderError(c, ctx, cfg, errs.Normalize(err))
			}
		}()
		ctx.Next(c)
	}
}

// CORSMiddleware 跨域配置
func CORSMiddleware(corsConfig config.CORSConfig) app.HandlerFunc {
	return cors.New(
		cors.Config{
			AllowOrigins:     corsConfig.AllowOrigins,
			AllowMethods:     corsConfig.AllowMethods,
			AllowHeaders:     corsConfig.AllowHeaders,
			ExposeHeaders:    corsConfig.ExposeHeaders,
			AllowCredentials: corsConfig.AllowCredentials,
			MaxAge:           corsConfig.MaxAge,
		},
	)
}

// TimeoutMiddleware 给后续处理器的上下文设置截止时间，存储层查询随之取消
func TimeoutMiddleware(seconds int) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if seconds <= 0 {
			ctx.Next(c)
			return
		}
		timeoutCtx, cancel := context.WithTimeout(c, time.Duration(seconds)*time.Second)
		defer cancel()

		ctx.Next(timeoutCtx)

		if timeoutCtx.Err() == context.DeadlineExceeded {
			hlog.CtxWarnf(c, "request timeout path=%s", ctx.Path())
		}
	}
}

// RateLimiter 按客户端 IP 独立计数的令牌桶
type RateLimiter struct {
	limiters  map[string]*clientLimiter
	mu        sync.Mutex
	requests  int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

// GetLimiter 返回某个 IP 的限流器
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	entry, exists := rl.limiters[ip]
	if !exists {
		// 窗口内最多 requests 次，按匀速补充
		entry = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.requests)), rl.requests),
		}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep 每个窗口最多清理一次；空闲满一个窗口的 IP 令牌已补满，删除不影响计数
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) >= rl.window {
			delete(rl.limiters, ip)
		}
	}
}

// RateLimitMiddleware 超出限额返回 429
func RateLimitMiddleware(requests int, window time.Duration) app.HandlerFunc {
	if requests <= 0 || window <= 0 {
		return func(c context.Context, ctx *app.RequestContext) { ctx.Next(c) }
	}
	rl := NewRateLimiter(requests, window)

	return func(c context.Context, ctx *app.RequestContext) {
		limiter := rl.GetLimiter(ctx.ClientIP())
		allowed := limiter.Allow()

		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		ctx.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(requests))
		ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			hlog.CtxInfof(c, "[RATE LIMIT] ip=%s path=%s", ctx.ClientIP(), ctx.Path())
			fail(ctx, errs.New("Too many requests from this IP. Please try again in an hour!", 429))
			return
		}
		ctx.Next(c)
	}
}

// 常见的安全响应头
var securityHeaders = map[string]string{
	"X-Content-Type-Options":            "nosniff",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"Content-Security-Policy":           "default-src 'self'",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cross-Origin-Resource-Policy":      "same-origin",
}

// SecurityCheckMiddleware 安全响应头、请求体大小限制、恶意脚本过滤、方法白名单
func SecurityCheckMiddleware(sec config.SecurityConfig) app.HandlerFunc {
	// 预编译恶意字符正则
	xssRegex := regexp.MustCompile(`(?i)<script.*?>|</script>|javascript:|onerror\s*=|onload\s*=`)

	allowed := make(map[string]bool, len(sec.AllowedMethods))
	for _, m := range sec.AllowedMethods {
		allowed[m] = true
	}

	return func(c context.Context, ctx *app.RequestContext) {
		for k, v := range securityHeaders {
			ctx.Response.Header.Set(k, v)
		}

		// 防护机制1：检查HTTP方法
		if len(allowed) > 0 && !allowed[string(ctx.Method())] {
			fail(ctx, errs.New(fmt.Sprintf("Method %s is not allowed", ctx.Method()), 405))
			return
		}

		// 防护机制2：请求体大小限制
		if sec.MaxBodySize > 0 &&
			(int64(ctx.Request.Header.ContentLength()) > sec.MaxBodySize || int64(len(ctx.Request.Body())) > sec.MaxBodySize) {
			fail(ctx, errs.New("Request body exceeds the allowed size", 413))
			return
		}

		// 防护机制3：参数与请求体中的恶意脚本
		if hasMaliciousContent(ctx, xssRegex) {
			fail(ctx, errs.BadRequest("Request contains invalid characters"))
			return
		}

		ctx.Next(c)
	}
}

func hasMaliciousContent(ctx *app.RequestContext, xss *regexp.Regexp) bool {
	var found int32

	visitor := func(key, value []byte) {
		if atomic.LoadInt32(&found) == 1 {
			return // 已经找到匹配，跳过后续检查
		}
		if xss.Match(key) || xss.Match(value) {
			atomic.StoreInt32(&found, 1)
		}
	}

	// 检查Query参数
	ctx.QueryArgs().VisitAll(visitor)
	if atomic.LoadInt32(&found) == 1 {
		return true
	}

	// 检查Post表单参数
	ctx.PostArgs().VisitAll(visitor)
	if atomic.LoadInt32(&found) == 1 {
		return true
	}

	// JSON 请求体
	return xss.Match(ctx.Request.Body())
}

// fail 记录错误并终止处理链，由 ErrorHandler 统一输出
func fail(ctx *app.RequestContext, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
