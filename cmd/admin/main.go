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

// 管理端进程：只挂 /admin/v1，不跑在线状态清扫
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
	stores, err := bootstrap.OpenStores(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("database open failed", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()

	app := bootstrap.NewApp(ctx, cfg, log, stores)
	app.Sink.Start()

	ac := cfg.App.Admin
	srv := server.BuildServer(
		server.Addr(ac.Host, ac.Port),
		router.NewAdminEngine(app.Deps),
		time.Duration(ac.ReadTimeoutSec)*time.Second,
		time.Duration(ac.WriteTimeoutSec)*time.Second,
		time.Duration(ac.IdleTimeoutSec)*time.Second,
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()
	log.Info("admin api started", zap.String("addr", srv.Addr), zap.String("prefix", "/admin/v1"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	_ = server.Shutdown(srv, 10*time.Second)
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Stop(sctx)
	log.Info("admin api stopped gracefully")
}
