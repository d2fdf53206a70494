package testutil

import (
	"context"
	"sync"
	"time"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

// Clock 可手动推进的时钟
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// SeedUser 写入一个已验证的活跃用户；opts 可在写入前修改字段
func SeedUser(ctx context.Context, repo domain.UserRepository, name, email string, opts ...func(*domain.User)) (*domain.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := &domain.User{
		ID:              utils.NewID(),
		Name:            name,
		Email:           utils.NormalizeEmail(email),
		Avatar:          domain.DefaultAvatar,
		Role:            domain.RoleUser,
		IsActive:        true,
		IsEmailVerified: true,
		LastActivity:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, o := range opts {
		o(u)
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SeedProduct 写入一个 active 商品
func SeedProduct(ctx context.Context, repo domain.ProductRepository, ownerID, title string, opts ...func(*domain.Product)) (*domain.Product, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p := &domain.Product{
		ID:                    utils.NewID(),
		Title:                 title,
		Description:           "Seeded product description",
		Price:                 10,
		Image:                 domain.DefaultProductImage,
		Category:              "Other",
		EstimatedPurchaseDate: now.Add(24 * time.Hour),
		CreatedBy:             ownerID,
		InterestedUsers:       []string{},
		Status:                domain.StatusActive,
		MinQuantity:           domain.DefaultMinQuantity,
		MaxQuantity:           domain.DefaultMaxQuantity,
		Tags:                  []string{},
	}
	for _, o := range opts {
		o(p)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.Touch(p.CreatedAt)
	if err := repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
