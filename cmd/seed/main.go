package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bulkbuy-api/internal/bootstrap"
	"bulkbuy-api/internal/core/config"
)

// 写入演示用户、商品和评论
func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "config file path")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, cleanup := bootstrap.NewLogger(cfg.Log)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("database open failed", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()

	res, err := bootstrap.Seed(ctx, stores, nil, log)
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	fmt.Printf("seeded %d users, %d products, %d comments (password %q)\n",
		res.Users, res.Products, res.Comments, bootstrap.SeedPassword)
}
