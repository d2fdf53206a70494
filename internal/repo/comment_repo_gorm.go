package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/feature/comment"
	"bulkbuy-api/pkg/utils"
)

type CommentRepo struct{ db *gorm.DB }

func NewCommentRepo(db *gorm.DB) *CommentRepo { return &CommentRepo{db: db} }

var _ domain.CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) model(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&comment.CommentModel{})
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	m := commentToModel(c)
	return mapErr(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *CommentRepo) FindByID(ctx context.Context, id string) (*domain.Comment, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var m comment.CommentModel
	if err := r.model(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, mapErr(err)
	}
	return modelToComment(&m), nil
}

func (r *CommentRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	var ms []comment.CommentModel
	if err := r.model(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, mapErr(err)
	}
	return modelsToComments(ms), nil
}

func (r *CommentRepo) Save(ctx context.Context, c *domain.Comment) error {
	if err := checkID(c.ID); err != nil {
		return err
	}
	m := commentToModel(c)
	res := r.db.WithContext(ctx).Select("*").Where("id = ?", c.ID).Updates(&m)
	return mapErr(res.Error)
}

func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&comment.CommentModel{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CommentRepo) DeleteByParent(ctx context.Context, parentID string) (int64, error) {
	if err := checkID(parentID); err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("parent_comment = ?", parentID).Delete(&comment.CommentModel{})
	return res.RowsAffected, mapErr(res.Error)
}

func (r *CommentRepo) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	if err := checkID(productID); err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&comment.CommentModel{})
	return res.RowsAffected, mapErr(res.Error)
}

func (r *CommentRepo) PushReply(ctx context.Context, parentID, childID string) error {
	return r.mutateReplies(ctx, parentID, func(replies []string) []string {
		if utils.Contains(replies, childID) {
			return replies
		}
		return append(replies, childID)
	})
}

func (r *CommentRepo) PullReply(ctx context.Context, parentID, childID string) error {
	return r.mutateReplies(ctx, parentID, func(replies []string) []string {
		out := replies[:0]
		for _, id := range replies {
			if id != childID {
				out = append(out, id)
			}
		}
		return out
	})
}

// mutateReplies 行锁内读改写 replies（JSON 列无法原子 push/pull）
func (r *CommentRepo) mutateReplies(ctx context.Context, parentID string, fn func([]string) []string) error {
	if err := checkID(parentID); err != nil {
		return err
	}
	return mapErr(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m comment.CommentModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "replies").
			Where("id = ?", parentID).
			First(&m).Error
		if err != nil {
			return err
		}
		m.Replies = fn(m.Replies)
		if m.Replies == nil {
			m.Replies = []string{}
		}
		return tx.Model(&comment.CommentModel{ID: parentID}).
			Select("replies").
			Updates(&comment.CommentModel{Replies: m.Replies}).Error
	}))
}

func (r *CommentRepo) List(ctx context.Context, f domain.CommentFilter) ([]domain.Comment, int64, error) {
	f.Page = f.Page.Normalize()
	q, err := r.filtered(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	var ms []comment.CommentModel
	if err := q.Order("created_at DESC").Offset(f.Offset()).Limit(f.Limit).Find(&ms).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	return modelsToComments(ms), total, nil
}

func (r *CommentRepo) Count(ctx context.Context, f domain.CommentFilter) (int64, error) {
	q, err := r.filtered(ctx, f)
	if err != nil {
		return 0, err
	}
	var n int64
	return n, mapErr(q.Count(&n).Error)
}

func (r *CommentRepo) filtered(ctx context.Context, f domain.CommentFilter) (*gorm.DB, error) {
	q := r.model(ctx)
	if f.ProductID != "" {
		if err := checkID(f.ProductID); err != nil {
			return nil, err
		}
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.UserID != "" {
		if err := checkID(f.UserID); err != nil {
			return nil, err
		}
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TopLevelOnly {
		q = q.Where("parent_comment IS NULL")
	}
	return q, nil
}

func commentToModel(c *domain.Comment) comment.CommentModel {
	m := comment.CommentModel{
		ID:        c.ID,
		Text:      c.Text,
		ProductID: c.ProductID,
		UserID:    c.UserID,
		Replies:   nonNil(c.Replies),
		Likes:     nonNil(c.Likes),
		IsEdited:  c.IsEdited,
		EditedAt:  c.EditedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ParentComment != "" {
		parent := c.ParentComment
		m.ParentComment = &parent
	}
	return m
}

func modelToComment(m *comment.CommentModel) *domain.Comment {
	c := &domain.Comment{
		ID:        m.ID,
		Text:      m.Text,
		ProductID: m.ProductID,
		UserID:    m.UserID,
		Replies:   nonNil(m.Replies),
		Likes:     nonNil(m.Likes),
		IsEdited:  m.IsEdited,
		EditedAt:  m.EditedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ParentComment != nil {
		c.ParentComment = *m.ParentComment
	}
	return c
}

func modelsToComments(ms []comment.CommentModel) []domain.Comment {
	out := make([]domain.Comment, 0, len(ms))
	for i := range ms {
		out = append(out, *modelToComment(&ms[i]))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
