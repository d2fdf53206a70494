package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"bulkbuy-api/internal/feature/comment"
	"bulkbuy-api/internal/feature/product"
	"bulkbuy-api/internal/feature/user"
)

// AutoMigrate 建表与索引（gorm）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.UserModel{},
		&product.ProductModel{},
		&product.InterestModel{},
		&product.TagModel{},
		&comment.CommentModel{},
	)
}

// EnsureMongoIndexes 创建各集合索引，错误汇总返回
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", NewMongoUserRepo(db).EnsureIndexes},
		{"products", NewMongoProductRepo(db).EnsureIndexes},
		{"comments", NewMongoCommentRepo(db).EnsureIndexes},
	}
	var errs []error
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s indexes: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
