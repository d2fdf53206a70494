package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

type CommentService struct {
	comments domain.CommentRepository
	products domain.ProductRepository
	lookup   userLookup
	log      *zap.Logger
	now      func() time.Time
}

func NewCommentService(comments domain.CommentRepository, products domain.ProductRepository, users domain.UserRepository, l *zap.Logger) *CommentService {
	if l == nil {
		l = zap.NewNop()
	}
	return &CommentService{
		comments: comments,
		products: products,
		lookup:   userLookup{users: users},
		log:      l,
		now:      time.Now,
	}
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 1 || n > domain.MaxCommentLength {
		return "", apperr.Validation(apperr.FieldError{
			Field:   "text",
			Message: "Comment must be between 1 and 500 characters",
		})
	}
	return text, nil
}

func (s *CommentService) find(ctx context.Context, id string, notFound error) (*domain.Comment, error) {
	c, err := s.comments.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, notFound
	}
	return c, err
}

// views 展开作者；withReplies 时再展开一层回复
func (s *CommentService) views(ctx context.Context, cs []domain.Comment, withReplies bool) ([]CommentView, error) {
	replies := make(map[string][]domain.Comment, len(cs))
	var refs []domain.UserRef
	for i := range cs {
		refs = append(refs, domain.RefID(cs[i].UserID))
		if !withReplies || len(cs[i].Replies) == 0 {
			continue
		}
		rs, err := s.comments.FindByIDs(ctx, cs[i].Replies)
		if err != nil {
			return nil, err
		}
		replies[cs[i].ID] = rs
		for j := range rs {
			refs = append(refs, domain.RefID(rs[j].UserID))
		}
	}
	lookup, err := s.lookup.load(ctx, refs)
	if err != nil {
		return nil, err
	}
	out := make([]CommentView, 0, len(cs))
	for i := range cs {
		v := toCommentView(&cs[i], lookup)
		for j := range replies[cs[i].ID] {
			v.Replies = append(v.Replies, toCommentView(&replies[cs[i].ID][j], lookup))
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *CommentService) view(ctx context.Context, c *domain.Comment) (*CommentView, error) {
	vs, err := s.views(ctx, []domain.Comment{*c}, false)
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

// ListForProduct 只分页顶层评论，回复展开一层
func (s *CommentService) ListForProduct(ctx context.Context, productID string, p domain.Page) ([]CommentView, domain.Pagination, error) {
	p = p.Normalize()
	cs, total, err := s.comments.List(ctx, domain.CommentFilter{ProductID: productID, TopLevelOnly: true, Page: p})
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	views, err := s.views(ctx, cs, true)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return views, domain.NewPagination(p, total), nil
}

// ListByUser 用户发表的全部评论，附带商品标题
func (s *CommentService) ListByUser(ctx context.Context, userID string, p domain.Page) ([]CommentView, domain.Pagination, error) {
	p = p.Normalize()
	cs, total, err := s.comments.List(ctx, domain.CommentFilter{UserID: userID, Page: p})
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	views, err := s.views(ctx, cs, false)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	titles := map[string]*ProductBrief{}
	for i := range views {
		pid := views[i].ProductID
		brief, ok := titles[pid]
		if !ok {
			prod, err := s.products.FindByID(ctx, pid)
			switch {
			case err == nil:
				brief = &ProductBrief{ID: prod.ID, Title: prod.Title}
			case errors.Is(err, domain.ErrNotFound):
				brief = nil
			default:
				return nil, domain.Pagination{}, err
			}
			titles[pid] = brief
		}
		views[i].Product = brief
	}
	return views, domain.NewPagination(p, total), nil
}

type CreateCommentInput struct {
	ProductID     string
	ParentComment string
	Text          string
}

func (s *CommentService) Create(ctx context.Context, authorID string, in CreateCommentInput) (*CommentView, error) {
	text, err := cleanText(in.Text)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if in.ParentComment != "" {
		parent, err := s.find(ctx, in.ParentComment, ErrParentNotFound)
		if err != nil {
			return nil, err
		}
		if parent.ProductID != in.ProductID {
			return nil, ErrParentOtherProduct
		}
	}

	now := s.now()
	c := &domain.Comment{
		ID:            utils.NewID(),
		Text:          text,
		ProductID:     in.ProductID,
		UserID:        authorID,
		ParentComment: in.ParentComment,
		Replies:       []string{},
		Likes:         []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	if c.IsReply() {
		if err := s.comments.PushReply(ctx, c.ParentComment, c.ID); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, c)
}

func (s *CommentService) Update(ctx context.Context, id, callerID, text string) (*CommentView, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	c, err := s.find(ctx, id, ErrCommentNotFound)
	if err != nil {
		return nil, err
	}
	if c.UserID != callerID {
		return nil, ErrNotCommentAuthor
	}
	now := s.now()
	c.Text = text
	c.IsEdited = true
	c.EditedAt = &now
	c.UpdatedAt = now
	if err := s.comments.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// Delete 从父评论摘除自身，并删除直接回复
func (s *CommentService) Delete(ctx context.Context, id, callerID string) error {
	c, err := s.find(ctx, id, ErrCommentNotFound)
	if err != nil {
		return err
	}
	if c.UserID != callerID {
		return ErrNotCommentAuthorDel
	}
	if c.IsReply() {
		if err := s.comments.PullReply(ctx, c.ParentComment, c.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	if _, err := s.comments.DeleteByParent(ctx, c.ID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, c.ID)
}

type LikeResult struct {
	IsLiked   bool
	LikeCount int
}

func (s *CommentService) ToggleLike(ctx context.Context, id, callerID string) (*LikeResult, error) {
	c, err := s.find(ctx, id, ErrCommentNotFound)
	if err != nil {
		return nil, err
	}
	var on bool
	c.Likes, on = utils.Toggle(c.Likes, callerID)
	c.UpdatedAt = s.now()
	if err := s.comments.Save(ctx, c); err != nil {
		return nil, err
	}
	return &LikeResult{IsLiked: on, LikeCount: c.LikeCount()}, nil
}
