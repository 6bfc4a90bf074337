package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"tour-booking/pkg/common/config"
	"tour-booking/pkg/common/email"
	reviewservice "tour-booking/pkg/core/review/service"
	"tour-booking/pkg/core/store"
	tourservice "tour-booking/pkg/core/tour/service"
	usermodel "tour-booking/pkg/core/user/model"
	userservice "tour-booking/pkg/core/user/service"
	"tour-booking/pkg/web/handler"
	"tour-booking/pkg/web/middleware"
)

// RegisterAPIs 注册所有API路由
func RegisterAPIs(h *server.Hertz, cfg *config.Config, st *store.Store, mailer email.Sender) error {
	users := userservice.NewUserService(st.Users, mailer, userservice.Options{
		BcryptCost:    cfg.Auth.BcryptCost,
		ResetTokenTTL: cfg.Auth.ResetTokenExpiry,
	})
	tokens, err := middleware.NewJWTAuth(cfg, users)
	if err != nil {
		return err
	}

	// 初始化Handler实例
	var pinger handler.Pinger
	if db := st.DB(); db != nil {
		pinger = db
	}
	healthHandler := handler.NewHealthCheckHandler(st.Driver, pinger)
	authHandler := handler.NewAuthHandler(users, tokens)
	userHandler := handler.NewUserHandler(st.Users, users)
	tourHandler := handler.NewTourHandler(st.Tours, tourservice.NewTourService(st.Tours))
	reviewHandler := handler.NewReviewHandler(st.Reviews, reviewservice.NewRatingService(st.Reviews, st.Tours))

	protect := middleware.Protect(users, cfg.Middleware.JWT)
	restrictTo := middleware.RestrictTo

	// 注册全局中间件（按执行顺序）
	h.Use(
		middleware.RecoveryMiddleware(cfg),
		middleware.ErrorHandler(cfg),
	)
	if !cfg.IsProd() {
		h.Use(middleware.LoggerMiddleware())
	}
	h.Use(
		middleware.SecurityCheckMiddleware(cfg.Middleware.Security),
		middleware.TimeoutMiddleware(cfg.Middleware.Timeout.RequestTimeout),
		middleware.CORSMiddleware(cfg.Middleware.CORS),
	)

	// 基础接口组
	h.GET("/health", healthHandler.AdvancedHealthCheck)

	// 业务接口组，按 IP 限流
	apiGroup := h.Group("/api/v1", middleware.RateLimitMiddleware(
		cfg.Middleware.RateLimit.Rate,
		cfg.Middleware.RateLimit.Interval,
	))

	// 旅游线路
	tourGroup := apiGroup.Group("/tours")
	{
		tourGroup.GET("/top-5-cheap", tourHandler.AliasTopTours, tourHandler.GetAll)
		tourGroup.GET("/tour-stats", tourHandler.GetTourStats)
		tourGroup.GET("/monthly-plan/:year", protect,
			restrictTo(usermodel.RoleAdmin, usermodel.RoleLeadGuide, usermodel.RoleGuide),
			tourHandler.GetMonthlyPlan)
		tourGroup.GET("/tours-within/:distance/center/:latlng/unit/:unit", tourHandler.GetToursWithin)

		tourGroup.GET("", tourHandler.GetAll)
		tourGroup.POST("", protect, restrictTo(usermodel.RoleAdmin, usermodel.RoleLeadGuide), tourHandler.CreateOne)
		tourGroup.GET("/:id", tourHandler.GetOne)
		tourGroup.PATCH("/:id", protect, restrictTo(usermodel.RoleAdmin, usermodel.RoleLeadGuide), tourHandler.UpdateOne)
		tourGroup.DELETE("/:id", protect, restrictTo(usermodel.RoleAdmin, usermodel.RoleLeadGuide), tourHandler.DeleteOne)

		// 嵌套评价
		tourGroup.GET("/:id/reviews", protect, handler.NestedTour(), reviewHandler.GetAll)
		tourGroup.POST("/:id/reviews", protect, restrictTo(usermodel.RoleUser), handler.NestedTour(), reviewHandler.CreateOne)
	}

	// 用户相关接口
	userGroup := apiGroup.Group("/users")
	{
		userGroup.POST("/signup", authHandler.Signup)
		userGroup.POST("/login", authHandler.Login())
		userGroup.POST("/forgotPassword", authHandler.ForgotPassword)
		userGroup.PATCH("/resetPassword/:token", authHandler.ResetPassword)

		// 需要身份认证的接口
		meGroup := userGroup.Group("", protect)
		meGroup.PATCH("/updateMyPassword", authHandler.UpdatePassword)
		meGroup.GET("/me", userHandler.GetMe)
		meGroup.PATCH("/updateMe", userHandler.UpdateMe)
		meGroup.DELETE("/deleteMe", userHandler.DeleteMe)

		// 仅管理员
		adminGroup := userGroup.Group("", protect, restrictTo(usermodel.RoleAdmin))
		adminGroup.GET("", userHandler.GetAll)
		adminGroup.POST("", userHandler.CreateUser)
		adminGroup.GET("/:id", userHandler.GetOne)
		adminGroup.PATCH("/:id", userHandler.UpdateOne)
		adminGroup.DELETE("/:id", userHandler.DeleteOne)
	}

	// 评价
	reviewGroup := apiGroup.Group("/reviews", protect)
	{
		reviewGroup.GET("", reviewHandler.GetAll)
		reviewGroup.POST("", restrictTo(usermodel.RoleUser), reviewHandler.CreateOne)
		reviewGroup.GET("/:id", reviewHandler.GetOne)
		reviewGroup.PATCH("/:id", restrictTo(usermodel.RoleUser, usermodel.RoleAdmin), reviewHandler.UpdateOne)
		reviewGroup.DELETE("/:id", restrictTo(usermodel.RoleUser, usermodel.RoleAdmin), reviewHandler.DeleteOne)
	}

	h.NoRoute(middleware.NotFoundHandler())
	return nil
}
