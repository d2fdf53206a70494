// Package testutil 提供测试用的内存存储和夹具
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

// Store 内存实现的三个仓库，共用一把锁
type Store struct {
	mu       sync.Mutex
	users    map[string]domain.User
	products map[string]domain.Product
	comments map[string]domain.Comment
}

func NewStore() *Store {
	return &Store{
		users:    map[string]domain.User{},
		products: map[string]domain.Product{},
		comments: map[string]domain.Comment{},
	}
}

func (s *Store) Users() *UserRepo       { return &UserRepo{s} }
func (s *Store) Products() *ProductRepo { return &ProductRepo{s} }
func (s *Store) Comments() *CommentRepo { return &CommentRepo{s} }

func checkID(id string) error {
	if !utils.IsValidID(id) {
		return domain.ErrInvalidID
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}

func cloneOTP(o *domain.OTP) *domain.OTP {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func paginate[T any](items []T, p domain.Page) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

/* ---------------- users ---------------- */

type UserRepo struct{ s *Store }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) public(u domain.User) *domain.User {
	u.StripSecrets()
	return &u
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	if err := checkID(u.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := utils.NormalizeEmail(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == email {
			return domain.ErrDuplicateKey
		}
	}
	cp := *u
	cp.Email = email
	cp.EmailVerification = cloneOTP(u.EmailVerification)
	cp.PasswordReset = cloneOTP(u.PasswordReset)
	r.s.users[u.ID] = cp
	return nil
}

func (r *UserRepo) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.public(u), nil
}

func (r *UserRepo) Presence(_ context.Context, id string) (*domain.Presence, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Presence{IsOnline: u.IsOnline, LastActivity: u.LastActivity}, nil
}

func (r *UserRepo) FindByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return nil, err
		}
		if u, ok := r.s.users[id]; ok {
			out = append(out, *r.public(u))
		}
	}
	return out, nil
}

func (r *UserRepo) byEmail(email string) (domain.User, bool) {
	email = utils.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.byEmail(email)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.public(u), nil
}

func (r *UserRepo) FindByEmailWithSecrets(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.byEmail(email)
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.EmailVerification = cloneOTP(u.EmailVerification)
	u.PasswordReset = cloneOTP(u.PasswordReset)
	return &u, nil
}

func (r *UserRepo) EmailTakenByOther(_ context.Context, email, excludeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.byEmail(email)
	return ok && u.ID != excludeID, nil
}

func (r *UserRepo) List(_ context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.User
	for _, u := range r.s.users {
		if !f.IncludeInactive && !u.IsActive {
			continue
		}
		if q := strings.TrimSpace(f.Search); q != "" && !containsFold(u.Name, q) && !containsFold(u.Email, q) {
			continue
		}
		all = append(all, *r.public(u))
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, f.Page), int64(len(all)), nil
}

func (r *UserRepo) ListOnline(_ context.Context, limit int) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.User
	for _, u := range r.s.users {
		if u.IsOnline && u.IsActive {
			all = append(all, *r.public(u))
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].LastActivity.After(all[j].LastActivity) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *UserRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

func (r *UserRepo) update(id string, fn func(u *domain.User)) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&u)
	r.s.users[id] = u
	return nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate, now time.Time) (*domain.User, error) {
	if p.Email != nil {
		taken, _ := r.EmailTakenByOther(ctx, *p.Email, id)
		if taken {
			return nil, domain.ErrDuplicateKey
		}
	}
	err := r.update(id, func(u *domain.User) {
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Email != nil {
			u.Email = utils.NormalizeEmail(*p.Email)
		}
		if p.Avatar != nil {
			u.Avatar = *p.Avatar
		}
		u.UpdatedAt = now
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepo) SetActive(_ context.Context, id string, active bool, now time.Time) error {
	return r.update(id, func(u *domain.User) {
		u.IsActive = active
		if !active {
			u.IsOnline = false
		}
		u.UpdatedAt = now
	})
}

func (r *UserRepo) SetEmailOTP(_ context.Context, id string, otp *domain.OTP) error {
	return r.update(id, func(u *domain.User) { u.EmailVerification = cloneOTP(otp) })
}

func (r *UserRepo) MarkEmailVerified(_ context.Context, id string, now time.Time) error {
	return r.update(id, func(u *domain.User) {
		u.IsEmailVerified = true
		u.EmailVerification = nil
		u.UpdatedAt = now
	})
}

func (r *UserRepo) SetResetOTP(_ context.Context, id string, otp *domain.OTP) error {
	return r.update(id, func(u *domain.User) { u.PasswordReset = cloneOTP(otp) })
}

func (r *UserRepo) ResetPassword(_ context.Context, id, hash string, now time.Time) error {
	return r.update(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordReset = nil
		u.UpdatedAt = now
	})
}

func (r *UserRepo) MarkLoggedIn(_ context.Context, id string, now time.Time) error {
	return r.update(id, func(u *domain.User) {
		u.IsOnline = true
		u.LastActivity = now
		t := now
		u.LastLogin = &t
	})
}

func (r *UserRepo) MarkOffline(_ context.Context, id string) error {
	return r.update(id, func(u *domain.User) { u.IsOnline = false })
}

func (r *UserRepo) TouchActivity(_ context.Context, id string, now time.Time) error {
	err := r.update(id, func(u *domain.User) {
		if u.IsActive {
			u.IsOnline = true
			u.LastActivity = now
		}
	})
	if err == domain.ErrNotFound {
		return nil
	}
	return err
}

func (r *UserRepo) MarkIdleOffline(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.users {
		if u.IsOnline && u.LastActivity.Before(cutoff) {
			u.IsOnline = false
			r.s.users[id] = u
			n++
		}
	}
	return n, nil
}

/* ---------------- products ---------------- */

type ProductRepo struct{ s *Store }

var _ domain.ProductRepository = (*ProductRepo)(nil)

func cloneProduct(p domain.Product) *domain.Product {
	p.InterestedUsers = cloneStrings(p.InterestedUsers)
	p.Tags = cloneStrings(p.Tags)
	p.CurrentQuantity = len(p.InterestedUsers)
	return &p
}

func (r *ProductRepo) Create(_ context.Context, p *domain.Product) error {
	if err := checkID(p.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return domain.ErrDuplicateKey
	}
	r.s.products[p.ID] = *cloneProduct(*p)
	return nil
}

func (r *ProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepo) Save(_ context.Context, p *domain.Product) error {
	if err := checkID(p.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.products[p.ID] = *cloneProduct(*p)
	return nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepo) match(p domain.Product, f domain.ProductFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.CreatedBy != "" && p.CreatedBy != f.CreatedBy {
		return false
	}
	if f.InterestedUser != "" && !utils.Contains(p.InterestedUsers, f.InterestedUser) {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		hit := containsFold(p.Title, q) || containsFold(p.Description, q)
		for _, t := range p.Tags {
			hit = hit || containsFold(t, q)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (r *ProductRepo) filter(f domain.ProductFilter) ([]domain.Product, error) {
	for _, id := range []string{f.CreatedBy, f.InterestedUser} {
		if id != "" {
			if err := checkID(id); err != nil {
				return nil, err
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Product
	for _, p := range r.s.products {
		if r.match(p, f) {
			out = append(out, *cloneProduct(p))
		}
	}
	return out, nil
}

func (r *ProductRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	all, err := r.filter(f)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch f.Sort {
		case domain.SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		case domain.SortPriceLow:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.SortPriceHigh:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return paginate(all, f.Page), int64(len(all)), nil
}

func (r *ProductRepo) Count(_ context.Context, f domain.ProductFilter) (int64, error) {
	all, err := r.filter(f)
	return int64(len(all)), err
}

/* ---------------- comments ---------------- */

type CommentRepo struct{ s *Store }

var _ domain.CommentRepository = (*CommentRepo)(nil)

func cloneComment(c domain.Comment) *domain.Comment {
	c.Replies = cloneStrings(c.Replies)
	c.Likes = cloneStrings(c.Likes)
	return &c
}

func (r *CommentRepo) Create(_ context.Context, c *domain.Comment) error {
	if err := checkID(c.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.comments[c.ID] = *cloneComment(*c)
	return nil
}

func (r *CommentRepo) FindByID(_ context.Context, id string) (*domain.Comment, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneComment(c), nil
}

func (r *CommentRepo) FindByIDs(_ context.Context, ids []string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Comment
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return nil, err
		}
		if c, ok := r.s.comments[id]; ok {
			out = append(out, *cloneComment(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CommentRepo) Save(_ context.Context, c *domain.Comment) error {
	if err := checkID(c.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.comments[c.ID] = *cloneComment(*c)
	return nil
}

func (r *CommentRepo) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}

func (r *CommentRepo) deleteWhere(pred func(domain.Comment) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.comments {
		if pred(c) {
			delete(r.s.comments, id)
			n++
		}
	}
	return n
}

func (r *CommentRepo) DeleteByParent(_ context.Context, parentID string) (int64, error) {
	if err := checkID(parentID); err != nil {
		return 0, err
	}
	return r.deleteWhere(func(c domain.Comment) bool { return c.ParentComment == parentID }), nil
}

func (r *CommentRepo) DeleteByProduct(_ context.Context, productID string) (int64, error) {
	if err := checkID(productID); err != nil {
		return 0, err
	}
	return r.deleteWhere(func(c domain.Comment) bool { return c.ProductID == productID }), nil
}

func (r *CommentRepo) mutate(id string, fn func(c *domain.Comment)) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&c)
	r.s.comments[id] = c
	return nil
}

func (r *CommentRepo) PushReply(_ context.Context, parentID, childID string) error {
	return r.mutate(parentID, func(c *domain.Comment) {
		if !utils.Contains(c.Replies, childID) {
			c.Replies = append(cloneStrings(c.Replies), childID)
		}
	})
}

func (r *CommentRepo) PullReply(_ context.Context, parentID, childID string) error {
	return r.mutate(parentID, func(c *domain.Comment) {
		out := []string{}
		for _, id := range c.Replies {
			if id != childID {
				out = append(out, id)
			}
		}
		c.Replies = out
	})
}

func (r *CommentRepo) filter(f domain.CommentFilter) ([]domain.Comment, error) {
	for _, id := range []string{f.ProductID, f.UserID} {
		if id != "" {
			if err := checkID(id); err != nil {
				return nil, err
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.s.comments {
		if f.ProductID != "" && c.ProductID != f.ProductID {
			continue
		}
		if f.UserID != "" && c.UserID != f.UserID {
			continue
		}
		if f.TopLevelOnly && c.IsReply() {
			continue
		}
		out = append(out, *cloneComment(c))
	}
	return out, nil
}

func (r *CommentRepo) List(_ context.Context, f domain.CommentFilter) ([]domain.Comment, int64, error) {
	all, err := r.filter(f)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, f.Page), int64(len(all)), nil
}

func (r *CommentRepo) Count(_ context.Context, f domain.CommentFilter) (int64, error) {
	all, err := r.filter(f)
	return int64(len(all)), err
}
