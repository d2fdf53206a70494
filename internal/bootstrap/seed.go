package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/service"
	"bulkbuy-api/pkg/utils"
)

// SeedPassword 演示账号统一密码
const SeedPassword = "password123"

type seedUser struct{ name, email string }

type seedProduct struct {
	owner       int
	title       string
	description string
	price       float64
	category    string
	days        int
	tags        []string
	interested  []int
}

var (
	seedUsers = []seedUser{
		{"Alice Johnson", "alice@example.com"},
		{"Bob Smith", "bob@example.com"},
		{"Carol Davis", "carol@example.com"},
	}
	seedProducts = []seedProduct{
		{0, "Bulk Rice 50kg", "Premium basmati rice, split between neighbours.", 89.99, "Other", 7, []string{"food", "rice"}, []int{1, 2}},
		{1, "Wireless Earbuds x10", "Group order for ten pairs of wireless earbuds.", 299.5, "Electronics", 14, []string{"audio"}, []int{0}},
		{2, "Yoga Mats Pack", "Eco friendly yoga mats, minimum order of five.", 120, "Sports", 10, []string{"fitness", "yoga"}, nil},
	}
)

// SeedResult 写入的数量
type SeedResult struct {
	Users    int
	Products int
	Comments int
}

// Seed 写入演示数据；邮箱已存在的用户直接复用
func Seed(ctx context.Context, st *Stores, hasher service.PasswordHasher, l *zap.Logger) (*SeedResult, error) {
	if hasher == nil {
		hasher = auth.NewBcryptHasher(auth.DefaultCost)
	}
	if l == nil {
		l = zap.NewNop()
	}
	var res SeedResult
	hash, err := hasher.Hash(SeedPassword)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(seedUsers))
	for i, su := range seedUsers {
		u, err := st.Users.FindByEmail(ctx, su.email)
		switch {
		case err == nil:
			ids[i] = u.ID
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		now := time.Now().UTC()
		u = &domain.User{
			ID:              utils.NewID(),
			Name:            su.name,
			Email:           utils.NormalizeEmail(su.email),
			Avatar:          domain.DefaultAvatar,
			Role:            domain.RoleUser,
			IsActive:        true,
			IsEmailVerified: true,
			LastActivity:    now,
			CreatedAt:       now,
			UpdatedAt:       now,
			PasswordHash:    hash,
		}
		if err := st.Users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", su.email, err)
		}
		ids[i] = u.ID
		res.Users++
	}

	products := service.NewProductService(st.Products, st.Comments, st.Users, l)
	comments := service.NewCommentService(st.Comments, st.Products, st.Users, l)
	for _, sp := range seedProducts {
		v, err := products.Create(ctx, ids[sp.owner], service.CreateProductInput{
			Title:                 sp.title,
			Description:           sp.description,
			Price:                 sp.price,
			Category:              sp.category,
			EstimatedPurchaseDate: time.Now().UTC().AddDate(0, 0, sp.days),
			Tags:                  sp.tags,
		})
		if err != nil {
			return nil, fmt.Errorf("seed product %q: %w", sp.title, err)
		}
		res.Products++

		for _, ui := range sp.interested {
			if _, err := products.ToggleInterest(ctx, v.ID, ids[ui]); err != nil {
				return nil, err
			}
			top, err := comments.Create(ctx, ids[ui], service.CreateCommentInput{ProductID: v.ID, Text: "Count me in!"})
			if err != nil {
				return nil, err
			}
			if _, err := comments.Create(ctx, ids[sp.owner], service.CreateCommentInput{
				ProductID:     v.ID,
				ParentComment: top.ID,
				Text:          "Great, welcome aboard.",
			}); err != nil {
				return nil, err
			}
			res.Comments += 2
		}
	}
	l.Info("seed done", zap.Int("users", res.Users), zap.Int("products", res.Products), zap.Int("comments", res.Comments))
	return &res, nil
}
