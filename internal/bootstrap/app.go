package bootstrap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/core/cache"
	"bulkbuy-api/internal/core/config"
	"bulkbuy-api/internal/core/logger"
	"bulkbuy-api/internal/core/mailer"
	"bulkbuy-api/internal/core/tasks"
	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/router"
)

// App 进程内共享的服务与后台组件
type App struct {
	Deps    router.Deps
	Sink    *tasks.Sink
	Sweeper *service.PresenceSweeper

	cache *cache.Cache
	log   *zap.Logger
}

// NewLogger 按配置构造日志，可选文件滚动
func NewLogger(cfg config.Log) (*zap.Logger, func()) {
	if cfg.Rotate.Enable {
		return logger.NewWithRotate(cfg.Level, cfg.JSON, logger.FileRotate{
			Enable:     true,
			Filename:   cfg.Rotate.Filename,
			MaxSizeMB:  cfg.Rotate.MaxSizeMB,
			MaxBackups: cfg.Rotate.MaxBackups,
			MaxAgeDays: cfg.Rotate.MaxAgeDays,
			Compress:   cfg.Rotate.Compress,
		})
	}
	return logger.New(cfg.Level, cfg.JSON)
}

func newSender(cfg config.Mail, l *zap.Logger) mailer.Sender {
	if cfg.Driver == "smtp" && cfg.Host != "" {
		return mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
	}
	return mailer.NewLogSender(l.Named("mail"))
}

// NewApp 组装仓储之上的服务；redis 不可用时退化为无缓存
func NewApp(ctx context.Context, cfg *config.Config, l *zap.Logger, st *Stores) *App {
	var c *cache.Cache
	if cfg.Redis.Enabled {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, l.Named("cache"))
		if err := c.Ping(ctx); err != nil {
			l.Warn("redis unavailable, profile cache disabled", zap.Error(err))
			_ = c.Close()
			c = nil
		}
	}

	sink := tasks.NewSink(l.Named("tasks"), tasks.Options{
		Workers:   cfg.Tasks.Workers,
		QueueSize: cfg.Tasks.QueueSize,
	})
	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:  st.Users,
		Hasher: auth.NewBcryptHasher(auth.DefaultCost),
		Tokens: jwter,
		Mailer: mailer.NewOTPMailer(newSender(cfg.Mail, l), cfg.Mail.AppURL),
		Log:    l.Named("auth"),
	})
	products := service.NewProductService(st.Products, st.Comments, st.Users, l.Named("products"))
	comments := service.NewCommentService(st.Comments, st.Products, st.Users, l.Named("comments"))
	users := service.NewUserService(st.Users, st.Products, st.Comments, c,
		time.Duration(cfg.Redis.ProfileTTLSec)*time.Second, l.Named("users"))

	return &App{
		Deps: router.Deps{
			Log:            l,
			Config:         cfg,
			JWT:            jwter,
			Users:          st.Users,
			Products:       st.Products,
			Comments:       st.Comments,
			Store:          st,
			Auth:           authSvc,
			ProductService: products,
			CommentService: comments,
			UserService:    users,
			Presence:       service.NewPresenceTracker(st.Users, sink, l.Named("presence")),
		},
		Sink: sink,
		Sweeper: service.NewPresenceSweeper(st.Users, l.Named("presence"),
			cfg.Presence.Interval(), cfg.Presence.IdleTimeout()),
		cache: c,
		log:   l,
	}
}

// Start 启动后台 worker 与在线状态清扫
func (a *App) Start() {
	a.Sink.Start()
	a.Sweeper.Start()
}

// Stop 先停清扫，再排空任务队列
func (a *App) Stop(ctx context.Context) error {
	a.Sweeper.Stop()
	err := a.Sink.Stop(ctx)
	if a.cache != nil {
		err = errors.Join(err, a.cache.Close())
	}
	return err
}
