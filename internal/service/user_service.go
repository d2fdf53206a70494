package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bulkbuy-api/internal/core/cache"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

const (
	DefaultOnlineLimit = 50
	MaxOnlineLimit     = 100
)

type UserService struct {
	users    domain.UserRepository
	products domain.ProductRepository
	comments domain.CommentRepository
	profiles *cache.JSON[domain.PublicUser]
	log      *zap.Logger
	now      func() time.Time
}

// NewUserService c 为 nil 时不走缓存
func NewUserService(users domain.UserRepository, products domain.ProductRepository, comments domain.CommentRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UserService{
		users:    users,
		products: products,
		comments: comments,
		profiles: cache.NewJSON[domain.PublicUser](c, "user:public:", ttl),
		log:      l,
		now:      time.Now,
	}
}

func (s *UserService) find(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) GetProfile(ctx context.Context, uid string) (*domain.User, error) {
	return s.find(ctx, uid)
}

type ProfileInput struct {
	Name   *string
	Email  *string
	Avatar *string
}

// normalize 只做清洗；格式校验在绑定层完成
func (in ProfileInput) normalize() domain.ProfileUpdate {
	var p domain.ProfileUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		p.Name = &name
	}
	if in.Email != nil {
		email := utils.NormalizeEmail(*in.Email)
		p.Email = &email
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		p.Avatar = &avatar
	}
	return p
}

func (s *UserService) UpdateProfile(ctx context.Context, uid string, in ProfileInput) (*domain.User, error) {
	p := in.normalize()
	if p.Email != nil {
		taken, err := s.users.EmailTakenByOther(ctx, *p.Email, uid)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailInUse
		}
	}
	u, err := s.users.UpdateProfile(ctx, uid, p, s.now())
	switch {
	case errors.Is(err, domain.ErrDuplicateKey):
		return nil, ErrEmailInUse
	case errors.Is(err, domain.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, err
	}
	s.profiles.Forget(ctx, uid)
	return u, nil
}

// GetPublic 公开资料，经 redis 读穿缓存；在线状态每次实时读取
func (s *UserService) GetPublic(ctx context.Context, id string) (*domain.PublicUser, error) {
	pu, err := s.profiles.Get(ctx, id, func(ctx context.Context) (*domain.PublicUser, error) {
		u, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		p := u.Public()
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	if pu == nil {
		return nil, ErrUserNotFound
	}
	pr, err := s.users.Presence(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.profiles.Forget(ctx, id)
		return nil, ErrUserNotFound
	case err != nil:
		return nil, err
	}
	pu.IsOnline = pr.IsOnline
	pu.LastActivity = pr.LastActivity
	return pu, nil
}

// List 活跃用户，按名称或邮箱搜索
func (s *UserService) List(ctx context.Context, search string, p domain.Page) ([]domain.User, domain.Pagination, error) {
	return s.list(ctx, domain.UserFilter{Search: search, Page: p})
}

func (s *UserService) list(ctx context.Context, f domain.UserFilter) ([]domain.User, domain.Pagination, error) {
	f.Page = f.Page.Normalize()
	f.Search = utils.Truncate(strings.TrimSpace(f.Search), maxSearchLen)
	us, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return us, domain.NewPagination(f.Page, total), nil
}

func (s *UserService) ListOnline(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = DefaultOnlineLimit
	}
	if limit > MaxOnlineLimit {
		limit = MaxOnlineLimit
	}
	return s.users.ListOnline(ctx, limit)
}

type UserStats struct {
	TotalProductsCreated    int64 `json:"totalProductsCreated"`
	TotalProductsInterested int64 `json:"totalProductsInterested"`
	TotalComments           int64 `json:"totalComments"`
	ActiveProducts          int64 `json:"activeProducts"`
	CompletedProducts       int64 `json:"completedProducts"`
}

// Stats 五个计数查询并发执行，实时计算
func (s *UserService) Stats(ctx context.Context, id string) (*domain.User, *UserStats, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var st UserStats
	g, gctx := errgroup.WithContext(ctx)
	countP := func(dst *int64, f domain.ProductFilter) {
		g.Go(func() error {
			n, err := s.products.Count(gctx, f)
			*dst = n
			return err
		})
	}
	countP(&st.TotalProductsCreated, domain.ProductFilter{CreatedBy: id})
	countP(&st.TotalProductsInterested, domain.ProductFilter{InterestedUser: id})
	countP(&st.ActiveProducts, domain.ProductFilter{CreatedBy: id, Status: domain.StatusActive})
	countP(&st.CompletedProducts, domain.ProductFilter{CreatedBy: id, Status: domain.StatusCompleted})
	g.Go(func() error {
		n, err := s.comments.Count(gctx, domain.CommentFilter{UserID: id})
		st.TotalComments = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return u, &st, nil
}

type Heartbeat struct {
	IsOnline     bool      `json:"isOnline"`
	LastActivity time.Time `json:"lastActivity"`
}

// Heartbeat 显式心跳，同步写入
func (s *UserService) Heartbeat(ctx context.Context, uid string) (*Heartbeat, error) {
	now := s.now()
	if err := s.users.TouchActivity(ctx, uid, now); err != nil {
		return nil, err
	}
	return &Heartbeat{IsOnline: true, LastActivity: now}, nil
}
