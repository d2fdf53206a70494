package domain

import (
	"context"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultAvatar = "https://via.placeholder.com/150/4A90E2/FFFFFF?text=User"
)

// OTP 一次性验证码及过期时间
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

func (o *OTP) Expired(now time.Time) bool { return o == nil || now.After(o.ExpiresAt) }

type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Avatar          string     `json:"avatar"`
	Role            string     `json:"role"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsOnline        bool       `json:"isOnline"`
	LastActivity    time.Time  `json:"lastActivity"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	// 仅在 *WithSecrets 查询中填充，永不序列化
	PasswordHash      string `json:"-"`
	EmailVerification *OTP   `json:"-"`
	PasswordReset     *OTP   `json:"-"`
}

// StripSecrets 清空敏感字段
func (u *User) StripSecrets() {
	u.PasswordHash = ""
	u.EmailVerification = nil
	u.PasswordReset = nil
}

// Presence 在线状态，随请求频繁变化，不进缓存
type Presence struct {
	IsOnline     bool
	LastActivity time.Time
}

// PublicUser 对外公开的用户资料
type PublicUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	Role         string    `json:"role"`
	IsOnline     bool      `json:"isOnline"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Avatar:       u.Avatar,
		Role:         u.Role,
		IsOnline:     u.IsOnline,
		LastActivity: u.LastActivity,
		CreatedAt:    u.CreatedAt,
	}
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// ProfileUpdate 资料修改，nil 表示不改
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
}

type UserFilter struct {
	Search          string
	IncludeInactive bool
	Page
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// Delete 物理删除，仅用于注册补偿
	Delete(ctx context.Context, id string) error

	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDs(ctx context.Context, ids []string) ([]User, error)
	// Presence 只读在线状态两列
	Presence(ctx context.Context, id string) (*Presence, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByEmailWithSecrets 显式读取密码哈希和 OTP 字段
	FindByEmailWithSecrets(ctx context.Context, email string) (*User, error)
	EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	ListOnline(ctx context.Context, limit int) ([]User, error)
	Count(ctx context.Context) (int64, error)

	UpdateProfile(ctx context.Context, id string, p ProfileUpdate, now time.Time) (*User, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) error

	SetEmailOTP(ctx context.Context, id string, otp *OTP) error
	// MarkEmailVerified 置已验证并清空验证码
	MarkEmailVerified(ctx context.Context, id string, now time.Time) error
	SetResetOTP(ctx context.Context, id string, otp *OTP) error
	// ResetPassword 写入新哈希并清空重置码
	ResetPassword(ctx context.Context, id, hash string, now time.Time) error

	// MarkLoggedIn isOnline=true，lastActivity=lastLogin=now
	MarkLoggedIn(ctx context.Context, id string, now time.Time) error
	MarkOffline(ctx context.Context, id string) error
	// TouchActivity 仅对 active 用户生效
	TouchActivity(ctx context.Context, id string, now time.Time) error
	// MarkIdleOffline 把 lastActivity < cutoff 的在线用户置为离线，返回数量
	MarkIdleOffline(ctx context.Context, cutoff time.Time) (int64, error)
}
