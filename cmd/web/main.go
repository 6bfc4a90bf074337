package main

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"tour-booking/pkg/common/config"
	"tour-booking/pkg/common/email"
	"tour-booking/pkg/core/store"
	"tour-booking/pkg/web/router"
)

func main() {
	// 初始化配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		hlog.Fatalf("invalid config: %v", err)
	}
	if cfg.IsProd() {
		hlog.SetLevel(hlog.LevelInfo)
	} else {
		hlog.SetLevel(hlog.LevelDebug)
	}
	hlog.Infof("starting in %s mode, storage=%s", cfg.Env, cfg.Database.Driver)

	// 初始化存储
	st, err := store.Open(cfg)
	if err != nil {
		hlog.Fatalf("failed to initialize database: %v", err)
	}
	defer st.Close()

	mailer := email.NewSMTPClient(
		cfg.Email.Host,
		cfg.Email.Port,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
	)

	// 创建Hertz实例
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)

	// 注册路由
	if err := router.RegisterAPIs(h, cfg, st, mailer); err != nil {
		hlog.Fatalf("failed to register routes: %v", err)
	}

	// 启动服务
	h.Spin()
}
