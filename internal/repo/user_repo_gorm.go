package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/feature/user"
	"bulkbuy-api/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) model(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&user.UserModel{})
}

// public 默认查询：排除密码和 OTP 列
func (r *UserRepo) public(ctx context.Context) *gorm.DB {
	return r.model(ctx).Omit(user.SecretColumns...)
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := userToModel(u)
	return mapErr(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&user.UserModel{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var m user.UserModel
	if err := r.public(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, mapErr(err)
	}
	return modelToUser(&m, false), nil
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	var ms []user.UserModel
	if err := r.public(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, mapErr(err)
	}
	return modelsToUsers(ms), nil
}

func (r *UserRepo) Presence(ctx context.Context, id string) (*domain.Presence, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var m user.UserModel
	if err := r.model(ctx).Select("is_online", "last_activity").Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, mapErr(err)
	}
	return &domain.Presence{IsOnline: m.IsOnline, LastActivity: m.LastActivity}, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m user.UserModel
	if err := r.public(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&m).Error; err != nil {
		return nil, mapErr(err)
	}
	return modelToUser(&m, false), nil
}

func (r *UserRepo) FindByEmailWithSecrets(ctx context.Context, email string) (*domain.User, error) {
	var m user.UserModel
	if err := r.model(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&m).Error; err != nil {
		return nil, mapErr(err)
	}
	return modelToUser(&m, true), nil
}

func (r *UserRepo) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	var n int64
	err := r.model(ctx).
		Where("email = ? AND id <> ?", utils.NormalizeEmail(email), excludeID).
		Count(&n).Error
	return n > 0, mapErr(err)
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	f.Page = f.Page.Normalize()
	q := r.public(ctx)
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(utils.EscapeLike(s)) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	var ms []user.UserModel
	if err := q.Order("created_at DESC").Offset(f.Offset()).Limit(f.Limit).Find(&ms).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	return modelsToUsers(ms), total, nil
}

func (r *UserRepo) ListOnline(ctx context.Context, limit int) ([]domain.User, error) {
	var ms []user.UserModel
	q := r.public(ctx).
		Where("is_online = ? AND is_active = ?", true, true).
		Order("last_activity DESC")
	// limit <= 0 不限制
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&ms).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return modelsToUsers(ms), nil
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.model(ctx).Count(&n).Error
	return n, mapErr(err)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate, now time.Time) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	set := map[string]any{"updated_at": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = utils.NormalizeEmail(*p.Email)
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if err := r.updates(ctx, id, set); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	if err := checkID(id); err != nil {
		return err
	}
	set := map[string]any{"is_active": active, "updated_at": now}
	if !active {
		set["is_online"] = false
	}
	return r.updates(ctx, id, set)
}

func (r *UserRepo) SetEmailOTP(ctx context.Context, id string, otp *domain.OTP) error {
	code, exp := otpColumns(otp)
	return r.updates(ctx, id, map[string]any{
		"email_verification_otp":         code,
		"email_verification_otp_expires": exp,
	})
}

func (r *UserRepo) MarkEmailVerified(ctx context.Context, id string, now time.Time) error {
	return r.updates(ctx, id, map[string]any{
		"is_email_verified":              true,
		"email_verification_otp":         nil,
		"email_verification_otp_expires": nil,
		"updated_at":                     now,
	})
}

func (r *UserRepo) SetResetOTP(ctx context.Context, id string, otp *domain.OTP) error {
	code, exp := otpColumns(otp)
	return r.updates(ctx, id, map[string]any{
		"password_reset_otp":         code,
		"password_reset_otp_expires": exp,
	})
}

func (r *UserRepo) ResetPassword(ctx context.Context, id, hash string, now time.Time) error {
	return r.updates(ctx, id, map[string]any{
		"password_hash":              hash,
		"password_reset_otp":         nil,
		"password_reset_otp_expires": nil,
		"updated_at":                 now,
	})
}

func (r *UserRepo) MarkLoggedIn(ctx context.Context, id string, now time.Time) error {
	return r.updates(ctx, id, map[string]any{
		"is_online":     true,
		"last_activity": now,
		"last_login":    now,
	})
}

func (r *UserRepo) MarkOffline(ctx context.Context, id string) error {
	return r.updates(ctx, id, map[string]any{"is_online": false})
}

func (r *UserRepo) TouchActivity(ctx context.Context, id string, now time.Time) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := r.model(ctx).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumns(map[string]any{"is_online": true, "last_activity": now}).Error
	return mapErr(err)
}

func (r *UserRepo) MarkIdleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.model(ctx).
		Where("is_online = ? AND last_activity < ?", true, cutoff).
		UpdateColumn("is_online", false)
	return res.RowsAffected, mapErr(res.Error)
}

// updates 按 id 更新指定列；行不存在返回 ErrNotFound
func (r *UserRepo) updates(ctx context.Context, id string, set map[string]any) error {
	if err := checkID(id); err != nil {
		return err
	}
	res := r.model(ctx).Where("id = ?", id).UpdateColumns(set)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 值未变化时 RowsAffected 为 0，需再确认行是否存在
	var n int64
	if err := r.model(ctx).Where("id = ?", id).Count(&n).Error; err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func otpColumns(otp *domain.OTP) (any, any) {
	if otp == nil {
		return nil, nil
	}
	return otp.Code, otp.ExpiresAt
}

func userToModel(u *domain.User) user.UserModel {
	m := user.UserModel{
		ID:              u.ID,
		Name:            u.Name,
		Email:           utils.NormalizeEmail(u.Email),
		PasswordHash:    u.PasswordHash,
		Avatar:          u.Avatar,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		IsOnline:        u.IsOnline,
		LastActivity:    u.LastActivity,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if o := u.EmailVerification; o != nil {
		code, exp := o.Code, o.ExpiresAt
		m.EmailOTP, m.EmailOTPExpires = &code, &exp
	}
	if o := u.PasswordReset; o != nil {
		code, exp := o.Code, o.ExpiresAt
		m.ResetOTP, m.ResetOTPExpires = &code, &exp
	}
	return m
}

func modelToUser(m *user.UserModel, withSecrets bool) *domain.User {
	u := &domain.User{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		Avatar:          m.Avatar,
		Role:            m.Role,
		IsActive:        m.IsActive,
		IsEmailVerified: m.IsEmailVerified,
		IsOnline:        m.IsOnline,
		LastActivity:    m.LastActivity,
		LastLogin:       m.LastLogin,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if !withSecrets {
		return u
	}
	u.PasswordHash = m.PasswordHash
	if m.EmailOTP != nil && m.EmailOTPExpires != nil {
		u.EmailVerification = &domain.OTP{Code: *m.EmailOTP, ExpiresAt: *m.EmailOTPExpires}
	}
	if m.ResetOTP != nil && m.ResetOTPExpires != nil {
		u.PasswordReset = &domain.OTP{Code: *m.ResetOTP, ExpiresAt: *m.ResetOTPExpires}
	}
	return u
}

func modelsToUsers(ms []user.UserModel) []domain.User {
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *modelToUser(&ms[i], false))
	}
	return out
}
