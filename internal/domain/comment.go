package domain

import (
	"context"
	"time"
)

const MaxCommentLength = 500

type Comment struct {
	ID            string
	Text          string
	ProductID     string
	UserID        string
	ParentComment string // 空串表示顶层评论
	Replies       []string
	Likes         []string
	IsEdited      bool
	EditedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c *Comment) IsReply() bool { return c.ParentComment != "" }

func (c *Comment) LikeCount() int { return len(c.Likes) }

type CommentFilter struct {
	ProductID    string
	UserID       string
	TopLevelOnly bool
	Page
}

type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	FindByID(ctx context.Context, id string) (*Comment, error)
	// FindByIDs 按创建时间升序返回
	FindByIDs(ctx context.Context, ids []string) ([]Comment, error)
	Save(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id string) error
	DeleteByParent(ctx context.Context, parentID string) (int64, error)
	DeleteByProduct(ctx context.Context, productID string) (int64, error)
	// PushReply / PullReply 维护父评论的 replies 数组
	PushReply(ctx context.Context, parentID, childID string) error
	PullReply(ctx context.Context, parentID, childID string) error
	// List 按创建时间倒序
	List(ctx context.Context, f CommentFilter) ([]Comment, int64, error)
	Count(ctx context.Context, f CommentFilter) (int64, error)
}
