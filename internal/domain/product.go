package domain

import (
	"context"
	"strings"
	"time"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	DefaultProductImage = "https://via.placeholder.com/400x300/E5E7EB/6B7280?text=Product+Image"
	DefaultMinQuantity  = 2
	DefaultMaxQuantity  = 100
)

var Categories = []string{
	"Electronics",
	"Fashion",
	"Home & Garden",
	"Sports",
	"Books",
	"Health & Beauty",
	"Other",
}

// CanonicalCategory 大小写不敏感匹配，返回规范写法
func CanonicalCategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Product struct {
	ID                    string
	Title                 string
	Description           string
	Price                 float64
	Image                 string
	Category              string
	EstimatedPurchaseDate time.Time
	CreatedBy             string
	InterestedUsers       []string
	Status                string
	MinQuantity           int
	MaxQuantity           int
	CurrentQuantity       int
	Tags                  []string
	Location              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Touch 保存前调用：刷新 updatedAt 并重算 currentQuantity
func (p *Product) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.CurrentQuantity = len(p.InterestedUsers)
}

func (p *Product) HasMinimumInterest() bool { return len(p.InterestedUsers) >= p.MinQuantity }

// ProgressPercentage 相对 minQuantity 的进度，封顶 100
func (p *Product) ProgressPercentage() float64 {
	if p.MinQuantity <= 0 {
		return 100
	}
	pct := float64(len(p.InterestedUsers)) / float64(p.MinQuantity) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func (p *Product) IsInterested(uid string) bool {
	for _, id := range p.InterestedUsers {
		if id == uid {
			return true
		}
	}
	return false
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortOldest    ProductSort = "oldest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
)

type ProductFilter struct {
	Status         string
	Category       string
	Search         string // 已截断的原始文本，由各存储自行转义
	CreatedBy      string
	InterestedUser string
	Sort           ProductSort
	Page
}

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	// Save 整体写回（包括 interestedUsers 和 tags），后写覆盖先写；
	// 读出的 CurrentQuantity 总是等于 interestedUsers 数量
	Save(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	Count(ctx context.Context, f ProductFilter) (int64, error)
}
