package service

import (
	"context"
	"time"

	"bulkbuy-api/internal/domain"
)

// ProductView 商品对外形态：关联用户已展开，附带派生字段
type ProductView struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	Description           string               `json:"description"`
	Price                 float64              `json:"price"`
	Image                 string               `json:"image"`
	Category              string               `json:"category"`
	EstimatedPurchaseDate time.Time            `json:"estimatedPurchaseDate"`
	CreatedBy             domain.UserSummary   `json:"createdBy"`
	InterestedUsers       []domain.UserSummary `json:"interestedUsers"`
	Status                string               `json:"status"`
	MinQuantity           int                  `json:"minQuantity"`
	MaxQuantity           int                  `json:"maxQuantity"`
	CurrentQuantity       int                  `json:"currentQuantity"`
	Tags                  []string             `json:"tags"`
	Location              string               `json:"location"`
	HasMinimumInterest    bool                 `json:"hasMinimumInterest"`
	ProgressPercentage    float64              `json:"progressPercentage"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

// ProductBrief 评论列表里携带的商品摘要
type ProductBrief struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type CommentView struct {
	ID            string             `json:"id"`
	Text          string             `json:"text"`
	ProductID     string             `json:"productId"`
	Product       *ProductBrief      `json:"product,omitempty"`
	User          domain.UserSummary `json:"user"`
	ParentComment *string            `json:"parentComment"`
	Replies       []CommentView      `json:"replies"`
	Likes         []string           `json:"likes"`
	LikeCount     int                `json:"likeCount"`
	IsEdited      bool               `json:"isEdited"`
	EditedAt      *time.Time         `json:"editedAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// userLookup 批量展开 UserRef
type userLookup struct {
	users domain.UserRepository
}

func (l userLookup) load(ctx context.Context, refs []domain.UserRef) (map[string]domain.UserSummary, error) {
	seen := make(map[string]struct{}, len(refs))
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if _, ok := r.Expanded(); ok {
			continue
		}
		if _, ok := seen[r.ID()]; ok || r.ID() == "" {
			continue
		}
		seen[r.ID()] = struct{}{}
		ids = append(ids, r.ID())
	}
	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	us, err := l.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range us {
		out[us[i].ID] = us[i].Summary()
	}
	return out, nil
}

func productRefs(ps []domain.Product) []domain.UserRef {
	var refs []domain.UserRef
	for i := range ps {
		refs = append(refs, domain.RefID(ps[i].CreatedBy))
		refs = append(refs, domain.RefIDs(ps[i].InterestedUsers)...)
	}
	return refs
}

func toProductView(p *domain.Product, lookup map[string]domain.UserSummary) ProductView {
	interested := make([]domain.UserSummary, 0, len(p.InterestedUsers))
	for _, r := range domain.RefIDs(p.InterestedUsers) {
		interested = append(interested, r.Resolve(lookup))
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return ProductView{
		ID:                    p.ID,
		Title:                 p.Title,
		Description:           p.Description,
		Price:                 p.Price,
		Image:                 p.Image,
		Category:              p.Category,
		EstimatedPurchaseDate: p.EstimatedPurchaseDate,
		CreatedBy:             domain.RefID(p.CreatedBy).Resolve(lookup),
		InterestedUsers:       interested,
		Status:                p.Status,
		MinQuantity:           p.MinQuantity,
		MaxQuantity:           p.MaxQuantity,
		CurrentQuantity:       p.CurrentQuantity,
		Tags:                  tags,
		Location:              p.Location,
		HasMinimumInterest:    p.HasMinimumInterest(),
		ProgressPercentage:    p.ProgressPercentage(),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (l userLookup) productViews(ctx context.Context, ps []domain.Product) ([]ProductView, error) {
	lookup, err := l.load(ctx, productRefs(ps))
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(ps))
	for i := range ps {
		out = append(out, toProductView(&ps[i], lookup))
	}
	return out, nil
}

func (l userLookup) productView(ctx context.Context, p *domain.Product) (*ProductView, error) {
	vs, err := l.productViews(ctx, []domain.Product{*p})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

func toCommentView(c *domain.Comment, lookup map[string]domain.UserSummary) CommentView {
	v := CommentView{
		ID:        c.ID,
		Text:      c.Text,
		ProductID: c.ProductID,
		User:      domain.RefID(c.UserID).Resolve(lookup),
		Replies:   []CommentView{},
		Likes:     c.Likes,
		LikeCount: c.LikeCount(),
		IsEdited:  c.IsEdited,
		EditedAt:  c.EditedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if v.Likes == nil {
		v.Likes = []string{}
	}
	if c.ParentComment != "" {
		parent := c.ParentComment
		v.ParentComment = &parent
	}
	return v
}
