package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/feature/product"
	"bulkbuy-api/pkg/utils"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

var _ domain.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	m := productToModel(p)
	return mapErr(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		return replaceChildren(tx, p)
	}))
}

func (r *ProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var m product.ProductModel
	err := r.db.WithContext(ctx).
		Preload("Interests", orderByPosition).
		Preload("Tags", orderByPosition).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return modelToProduct(&m), nil
}

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	if err := checkID(p.ID); err != nil {
		return err
	}
	m := productToModel(p)
	return mapErr(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 行锁：并发 Save 的关联表重写互不交错
		var locked product.ProductModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", p.ID).Take(&locked).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Select("*").Where("id = ?", p.ID).Updates(&m).Error; err != nil {
			return err
		}
		return replaceChildren(tx, p)
	}))
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return mapErr(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&product.InterestModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&product.TagModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&product.ProductModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	}))
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	f.Page = f.Page.Normalize()
	q, err := r.filtered(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err)
	}

	var ms []product.ProductModel
	err = q.Preload("Interests", orderByPosition).
		Preload("Tags", orderByPosition).
		Order(productOrder(f.Sort)).
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&ms).Error
	if err != nil {
		return nil, 0, mapErr(err)
	}
	out := make([]domain.Product, 0, len(ms))
	for i := range ms {
		out = append(out, *modelToProduct(&ms[i]))
	}
	return out, total, nil
}

func (r *ProductRepo) Count(ctx context.Context, f domain.ProductFilter) (int64, error) {
	q, err := r.filtered(ctx, f)
	if err != nil {
		return 0, err
	}
	var n int64
	return n, mapErr(q.Count(&n).Error)
}

func (r *ProductRepo) filtered(ctx context.Context, f domain.ProductFilter) (*gorm.DB, error) {
	q := r.db.WithContext(ctx).Model(&product.ProductModel{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.CreatedBy != "" {
		if err := checkID(f.CreatedBy); err != nil {
			return nil, err
		}
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.InterestedUser != "" {
		if err := checkID(f.InterestedUser); err != nil {
			return nil, err
		}
		sub := r.db.Model(&product.InterestModel{}).Select("product_id").Where("user_id = ?", f.InterestedUser)
		q = q.Where("id IN (?)", sub)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(utils.EscapeLike(s)) + "%"
		tagged := r.db.Model(&product.TagModel{}).Select("product_id").Where("LOWER(tag) LIKE ?", like)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR id IN (?)", like, like, tagged)
	}
	return q, nil
}

func productOrder(s domain.ProductSort) string {
	switch s {
	case domain.SortOldest:
		return "created_at ASC"
	case domain.SortPriceLow:
		return "price ASC, created_at DESC"
	case domain.SortPriceHigh:
		return "price DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func orderByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

// replaceChildren 以 p.InterestedUsers 和 p.Tags 覆盖两张关联表
func replaceChildren(tx *gorm.DB, p *domain.Product) error {
	if err := tx.Where("product_id = ?", p.ID).Delete(&product.InterestModel{}).Error; err != nil {
		return err
	}
	if err := tx.Where("product_id = ?", p.ID).Delete(&product.TagModel{}).Error; err != nil {
		return err
	}
	if len(p.InterestedUsers) > 0 {
		rows := make([]product.InterestModel, 0, len(p.InterestedUsers))
		for i, uid := range p.InterestedUsers {
			rows = append(rows, product.InterestModel{ProductID: p.ID, UserID: uid, Position: i, CreatedAt: p.UpdatedAt})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(p.Tags) == 0 {
		return nil
	}
	tags := make([]product.TagModel, 0, len(p.Tags))
	for i, t := range p.Tags {
		tags = append(tags, product.TagModel{ProductID: p.ID, Position: i, Tag: t})
	}
	return tx.Create(&tags).Error
}

func productToModel(p *domain.Product) product.ProductModel {
	return product.ProductModel{
		ID:                    p.ID,
		Title:                 p.Title,
		Description:           p.Description,
		Price:                 p.Price,
		Image:                 p.Image,
		Category:              p.Category,
		EstimatedPurchaseDate: p.EstimatedPurchaseDate,
		CreatedBy:             p.CreatedBy,
		Status:                p.Status,
		MinQuantity:           p.MinQuantity,
		MaxQuantity:           p.MaxQuantity,
		CurrentQuantity:       len(p.InterestedUsers),
		Location:              p.Location,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func modelToProduct(m *product.ProductModel) *domain.Product {
	interested := make([]string, 0, len(m.Interests))
	for _, it := range m.Interests {
		interested = append(interested, it.UserID)
	}
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, t.Tag)
	}
	return &domain.Product{
		ID:                    m.ID,
		Title:                 m.Title,
		Description:           m.Description,
		Price:                 m.Price,
		Image:                 m.Image,
		Category:              m.Category,
		EstimatedPurchaseDate: m.EstimatedPurchaseDate,
		CreatedBy:             m.CreatedBy,
		InterestedUsers:       interested,
		Status:                m.Status,
		MinQuantity:           m.MinQuantity,
		MaxQuantity:           m.MaxQuantity,
		CurrentQuantity:       len(interested),
		Tags:                  tags,
		Location:              m.Location,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
