package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bulkbuy-api/internal/core/config"
	"bulkbuy-api/internal/core/database"
	"bulkbuy-api/internal/core/logger"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/repo"
)

// Stores 按 db.driver 选出的一组仓储
type Stores struct {
	Users    domain.UserRepository
	Products domain.ProductRepository
	Comments domain.CommentRepository

	driver string
	ping   func(context.Context) error
	close  func() error
}

func (s *Stores) Driver() string                 { return s.driver }
func (s *Stores) Ping(ctx context.Context) error { return s.ping(ctx) }

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores 连接数据库；auto_migrate 开启时建表或建索引
func OpenStores(ctx context.Context, cfg config.DB, l *zap.Logger) (*Stores, error) {
	if cfg.Driver == "mongo" {
		return openMongo(ctx, cfg, l)
	}
	return openGorm(cfg, l)
}

func openGorm(cfg config.DB, l *zap.Logger) (*Stores, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.Driver,
		DSN:                cfg.DSN,
		Username:           cfg.Username,
		Password:           cfg.Password,
		MaxOpenConns:       cfg.MaxOpenConns,
		MaxIdleConns:       cfg.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.ConnMaxLifetimeMin,
		LogLevel:           cfg.LogLevel,
		Writer:             logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	l.Info("database ready", zap.String("driver", cfg.Driver), zap.String("dsn", database.MaskDSN(cfg.DSN)))
	return &Stores{
		Users:    repo.NewUserRepo(db),
		Products: repo.NewProductRepo(db),
		Comments: repo.NewCommentRepo(db),
		driver:   cfg.Driver,
		ping:     sqlDB.PingContext,
		close:    sqlDB.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg config.DB, l *zap.Logger) (*Stores, error) {
	client, db, err := database.NewMongo(ctx, database.MongoOpts{
		URI:            cfg.URI,
		Database:       cfg.Name,
		MaxPoolSize:    uint64(max(cfg.MaxOpenConns, 0)),
		ConnectTimeout: time.Duration(cfg.ConnectTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open mongo: %w", err)
	}
	if cfg.AutoMigrate {
		if err := repo.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("indexes: %w", err)
		}
	}
	l.Info("database ready", zap.String("driver", "mongo"), zap.String("db", cfg.Name))
	return &Stores{
		Users:    repo.NewMongoUserRepo(db),
		Products: repo.NewMongoProductRepo(db),
		Comments: repo.NewMongoCommentRepo(db),
		driver:   "mongo",
		ping:     func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		close:    func() error { return client.Disconnect(context.Background()) },
	}, nil
}
