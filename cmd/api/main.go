package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bulkbuy-api/internal/bootstrap"
	"bulkbuy-api/internal/core/config"
	"bulkbuy-api/internal/core/server"
	"bulkbuy-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, cleanup := bootstrap.NewLogger(cfg.Log)
	defer cleanup()

	ctx := context.Background()

	// 数据库（失败直接 Fatal）
	stores, err := bootstrap.OpenStores(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("database open failed", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()

	app := bootstrap.NewApp(ctx, cfg, log, stores)
	app.Start()

	// 路由（用户端）
	r := router.NewAPIEngine(app.Deps)

	hc := cfg.App.HTTP
	addr := server.Addr(hc.Host, hc.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(hc.ReadTimeoutSec)*time.Second,
		time.Duration(hc.WriteTimeoutSec)*time.Second,
		time.Duration(hc.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := hc.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(hc.Port)
	log.Info("bulkbuy api starting",
		zap.String("env", cfg.App.Env),
		zap.String("db", stores.Driver()),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/api/health"),
		zap.String("docs", baseURL+"/api/docs"),
	)

	// 异步启动
	go func() {
		if err := server.StartHTTP(srv, log); err != nil {
			log.Fatal("bulkbuy api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	if err := server.Shutdown(srv, 10*time.Second); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(sctx); err != nil {
		log.Warn("background shutdown", zap.Error(err))
	}
	log.Info("bulkbuy api stopped gracefully")
}
