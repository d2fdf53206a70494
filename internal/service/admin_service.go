package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bulkbuy-api/internal/domain"
)

// AdminList 管理端用户列表，包含已停用用户
func (s *UserService) AdminList(ctx context.Context, search string, p domain.Page) ([]domain.User, domain.Pagination, error) {
	return s.list(ctx, domain.UserFilter{Search: search, IncludeInactive: true, Page: p})
}

// SetActive 停用后登录返回 AccountDeactivated，受保护接口返回 401
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	err := s.users.SetActive(ctx, id, active, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	s.profiles.Forget(ctx, id)
	s.log.Info("user active flag changed", zap.String("user_id", id), zap.Bool("active", active))
	return s.find(ctx, id)
}

type PlatformStats struct {
	Users             int64 `json:"users"`
	OnlineUsers       int   `json:"onlineUsers"`
	Products          int64 `json:"products"`
	ActiveProducts    int64 `json:"activeProducts"`
	CompletedProducts int64 `json:"completedProducts"`
	CancelledProducts int64 `json:"cancelledProducts"`
	Comments          int64 `json:"comments"`
}

func (s *UserService) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	var st PlatformStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		st.Users = n
		return err
	})
	g.Go(func() error {
		us, err := s.users.ListOnline(gctx, 0)
		st.OnlineUsers = len(us)
		return err
	})
	for _, c := range []struct {
		dst    *int64
		status string
	}{
		{&st.Products, ""},
		{&st.ActiveProducts, domain.StatusActive},
		{&st.CompletedProducts, domain.StatusCompleted},
		{&st.CancelledProducts, domain.StatusCancelled},
	} {
		c := c
		g.Go(func() error {
			n, err := s.products.Count(gctx, domain.ProductFilter{Status: c.status})
			*c.dst = n
			return err
		})
	}
	g.Go(func() error {
		n, err := s.comments.Count(gctx, domain.CommentFilter{})
		st.Comments = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}
