package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

const maxSearchLen = 100

type ProductService struct {
	products domain.ProductRepository
	comments domain.CommentRepository
	lookup   userLookup
	log      *zap.Logger
	now      func() time.Time
}

func NewProductService(products domain.ProductRepository, comments domain.CommentRepository, users domain.UserRepository, l *zap.Logger) *ProductService {
	if l == nil {
		l = zap.NewNop()
	}
	return &ProductService{
		products: products,
		comments: comments,
		lookup:   userLookup{users: users},
		log:      l,
		now:      time.Now,
	}
}

type ListProductsInput struct {
	Category string
	Search   string
	Sort     domain.ProductSort
	Page     domain.Page
}

// List 公开列表，只含 active 商品；非法分类直接忽略
func (s *ProductService) List(ctx context.Context, in ListProductsInput) ([]ProductView, domain.Pagination, error) {
	f := domain.ProductFilter{
		Status: domain.StatusActive,
		Search: utils.Truncate(strings.TrimSpace(in.Search), maxSearchLen),
		Sort:   in.Sort,
		Page:   in.Page.Normalize(),
	}
	if c, ok := domain.CanonicalCategory(in.Category); ok {
		f.Category = c
	}
	return s.list(ctx, f)
}

func (s *ProductService) list(ctx context.Context, f domain.ProductFilter) ([]ProductView, domain.Pagination, error) {
	f.Page = f.Page.Normalize()
	ps, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	views, err := s.lookup.productViews(ctx, ps)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return views, domain.NewPagination(f.Page, total), nil
}

// ListByOwner status 为空表示全部状态
func (s *ProductService) ListByOwner(ctx context.Context, ownerID, status string, p domain.Page) ([]ProductView, domain.Pagination, error) {
	return s.list(ctx, domain.ProductFilter{CreatedBy: ownerID, Status: status, Page: p})
}

func (s *ProductService) ListInterested(ctx context.Context, uid string, p domain.Page) ([]ProductView, domain.Pagination, error) {
	return s.list(ctx, domain.ProductFilter{InterestedUser: uid, Page: p})
}

func (s *ProductService) find(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *ProductService) Get(ctx context.Context, id string) (*ProductView, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.lookup.productView(ctx, p)
}

type CreateProductInput struct {
	Title                 string
	Description           string
	Price                 float64
	Image                 string
	Category              string
	EstimatedPurchaseDate time.Time
	MinQuantity           *int
	MaxQuantity           *int
	Tags                  []string
	Location              string
}

func invalidCategory() error {
	return apperr.Validation(apperr.FieldError{Field: "category", Message: "Invalid category"})
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *ProductService) Create(ctx context.Context, ownerID string, in CreateProductInput) (*ProductView, error) {
	now := s.now()
	if !in.EstimatedPurchaseDate.After(now) {
		return nil, ErrPurchaseDateNotAhead
	}
	category, ok := domain.CanonicalCategory(in.Category)
	if !ok {
		return nil, invalidCategory()
	}
	minQ, maxQ := domain.DefaultMinQuantity, domain.DefaultMaxQuantity
	if in.MinQuantity != nil {
		minQ = *in.MinQuantity
	}
	if in.MaxQuantity != nil {
		maxQ = *in.MaxQuantity
	}
	if minQ > maxQ {
		return nil, ErrQuantityRange
	}
	image := strings.TrimSpace(in.Image)
	if image == "" {
		image = domain.DefaultProductImage
	}

	p := &domain.Product{
		ID:                    utils.NewID(),
		Title:                 strings.TrimSpace(in.Title),
		Description:           strings.TrimSpace(in.Description),
		Price:                 in.Price,
		Image:                 image,
		Category:              category,
		EstimatedPurchaseDate: in.EstimatedPurchaseDate,
		CreatedBy:             ownerID,
		InterestedUsers:       []string{},
		Status:                domain.StatusActive,
		MinQuantity:           minQ,
		MaxQuantity:           maxQ,
		Tags:                  cleanTags(in.Tags),
		Location:              strings.TrimSpace(in.Location),
	}
	p.Touch(now)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.lookup.productView(ctx, p)
}

// UpdateProductInput nil 字段不修改；createdBy 不可改
type UpdateProductInput struct {
	Title                 *string
	Description           *string
	Price                 *float64
	Image                 *string
	Category              *string
	EstimatedPurchaseDate *time.Time
	MinQuantity           *int
	MaxQuantity           *int
	Tags                  []string
	Location              *string
	Status                *string
}

func (s *ProductService) Update(ctx context.Context, id, callerID string, in UpdateProductInput) (*ProductView, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != callerID {
		return nil, ErrNotProductOwner
	}
	now := s.now()

	if in.EstimatedPurchaseDate != nil {
		if !in.EstimatedPurchaseDate.After(now) {
			return nil, ErrPurchaseDateNotAhead
		}
		p.EstimatedPurchaseDate = *in.EstimatedPurchaseDate
	}
	if in.Category != nil {
		c, ok := domain.CanonicalCategory(*in.Category)
		if !ok {
			return nil, invalidCategory()
		}
		p.Category = c
	}
	if in.Status != nil {
		if !domain.ValidStatus(*in.Status) {
			return nil, apperr.Validation(apperr.FieldError{Field: "status", Message: "Invalid status"})
		}
		p.Status = *in.Status
	}
	if in.MinQuantity != nil {
		p.MinQuantity = *in.MinQuantity
	}
	if in.MaxQuantity != nil {
		p.MaxQuantity = *in.MaxQuantity
	}
	if p.MinQuantity > p.MaxQuantity {
		return nil, ErrQuantityRange
	}
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
		if p.Image == "" {
			p.Image = domain.DefaultProductImage
		}
	}
	if in.Tags != nil {
		p.Tags = cleanTags(in.Tags)
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}

	p.Touch(now)
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	return s.lookup.productView(ctx, p)
}

// Delete 仅限所有者；连同该商品下的评论一起删除
func (s *ProductService) Delete(ctx context.Context, id, callerID string) error {
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if p.CreatedBy != callerID {
		return ErrNotProductOwnerDel
	}
	n, err := s.comments.DeleteByProduct(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, p.ID); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.String("product_id", p.ID), zap.Int64("comments_removed", n))
	return nil
}

type InterestResult struct {
	Product         ProductView
	IsInterested    bool
	InterestedCount int
}

// ToggleInterest 读改写整条记录，并发时后写覆盖
func (s *ProductService) ToggleInterest(ctx context.Context, id, callerID string) (*InterestResult, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	var on bool
	p.InterestedUsers, on = utils.Toggle(p.InterestedUsers, callerID)
	p.Touch(s.now())
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	v, err := s.lookup.productView(ctx, p)
	if err != nil {
		return nil, err
	}
	return &InterestResult{Product: *v, IsInterested: on, InterestedCount: len(p.InterestedUsers)}, nil
}
