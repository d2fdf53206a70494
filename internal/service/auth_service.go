package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/pkg/utils"
)

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Compare(hashed, pw string) bool
}

type TokenIssuer interface {
	Issue(uid, role string) (string, error)
}

// OTPMailer 发送验证码邮件
type OTPMailer interface {
	SendVerificationOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
	SendPasswordResetOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
}

type AuthDeps struct {
	Users  domain.UserRepository
	Hasher PasswordHasher
	Tokens TokenIssuer
	Mailer OTPMailer
	OTP    OTPIssuer
	Log    *zap.Logger
	Now    func() time.Time
}

type AuthService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	mail   OTPMailer
	otp    OTPIssuer
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.OTP.TTL <= 0 {
		d.OTP = NewOTPIssuer()
	}
	return &AuthService{
		users:  d.Users,
		hasher: d.Hasher,
		tokens: d.Tokens,
		mail:   d.Mailer,
		otp:    d.OTP,
		log:    d.Log,
		now:    d.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterResult struct {
	UserID               string `json:"userId"`
	Email                string `json:"email"`
	RequiresVerification bool   `json:"requiresVerification"`
}

// AuthResult 验证或登录成功后的令牌和用户
type AuthResult struct {
	Token string
	User  *domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := utils.NormalizeEmail(in.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password failed", err)
	}
	now := s.now()
	otp, err := s.otp.Issue(now)
	if err != nil {
		return nil, apperr.Internal("generate otp failed", err)
	}

	u := &domain.User{
		ID:                utils.NewID(),
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		Avatar:            domain.DefaultAvatar,
		Role:              domain.RoleUser,
		IsActive:          true,
		LastActivity:      now,
		CreatedAt:         now,
		UpdatedAt:         now,
		PasswordHash:      hash,
		EmailVerification: otp,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := s.mail.SendVerificationOTP(ctx, u.Email, u.Name, otp.Code, s.otp.TTL); err != nil {
		// 补偿：邮件没发出去就撤销注册
		if derr := s.users.Delete(ctx, u.ID); derr != nil {
			s.log.Error("rollback registration failed", zap.String("user_id", u.ID), zap.Error(derr))
		}
		s.log.Warn("verification email failed", zap.String("user_id", u.ID), zap.Error(err))
		return nil, ErrVerificationMail.Wrap(err)
	}

	s.log.Info("user registered", zap.String("user_id", u.ID))
	return &RegisterResult{UserID: u.ID, Email: u.Email, RequiresVerification: true}, nil
}

func (s *AuthService) findWithSecrets(ctx context.Context, email string, notFound error) (*domain.User, error) {
	u, err := s.users.FindByEmailWithSecrets(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, notFound
	}
	return u, err
}

func (s *AuthService) issue(u *domain.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal("issue token failed", err)
	}
	u.StripSecrets()
	return &AuthResult{Token: tok, User: u}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	u, err := s.findWithSecrets(ctx, email, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	if u.IsEmailVerified {
		return nil, ErrAlreadyVerified
	}
	now := s.now()
	if !VerifyOTP(u.EmailVerification, code, now) {
		return nil, ErrInvalidOTP
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.IsEmailVerified = true
	u.UpdatedAt = now
	return s.issue(u)
}

func (s *AuthService) ResendVerificationOTP(ctx context.Context, email string) error {
	u, err := s.findWithSecrets(ctx, email, ErrUserNotFound)
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return ErrAlreadyVerified
	}
	otp, err := s.otp.Issue(s.now())
	if err != nil {
		return apperr.Internal("generate otp failed", err)
	}
	if err := s.users.SetEmailOTP(ctx, u.ID, otp); err != nil {
		return err
	}
	if err := s.mail.SendVerificationOTP(ctx, u.Email, u.Name, otp.Code, s.otp.TTL); err != nil {
		s.log.Warn("resend verification email failed", zap.String("user_id", u.ID), zap.Error(err))
		return ErrVerificationMail.Wrap(err)
	}
	return nil
}

// Login 顺序：不存在 → 停用 → 未验证 → 密码不符
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.findWithSecrets(ctx, email, ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	if !u.IsEmailVerified {
		return nil, ErrEmailNotVerified.With(map[string]any{
			"requiresVerification": true,
			"email":                u.Email,
		})
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.MarkLoggedIn(ctx, u.ID, now); err != nil {
		s.log.Warn("mark logged in failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	u.IsOnline = true
	u.LastActivity = now
	u.LastLogin = &now
	return s.issue(u)
}

// Logout 尽力置离线，失败只记日志
func (s *AuthService) Logout(ctx context.Context, uid string) {
	if err := s.users.MarkOffline(ctx, uid); err != nil {
		s.log.Warn("mark offline failed", zap.String("user_id", uid), zap.Error(err))
	}
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.findWithSecrets(ctx, email, ErrResetUserNotFound)
	if err != nil {
		return err
	}
	if !u.IsEmailVerified {
		return ErrVerifyEmailFirst
	}
	otp, err := s.otp.Issue(s.now())
	if err != nil {
		return apperr.Internal("generate otp failed", err)
	}
	if err := s.users.SetResetOTP(ctx, u.ID, otp); err != nil {
		return err
	}
	if err := s.mail.SendPasswordResetOTP(ctx, u.Email, u.Name, otp.Code, s.otp.TTL); err != nil {
		s.log.Warn("password reset email failed", zap.String("user_id", u.ID), zap.Error(err))
		return ErrResetMail.Wrap(err)
	}
	return nil
}

// VerifyResetOTP 校验成功不清空重置码，返回的码作为 resetPassword 的凭据
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	u, err := s.findWithSecrets(ctx, email, ErrUserNotFound)
	if err != nil {
		return "", err
	}
	if !VerifyOTP(u.PasswordReset, code, s.now()) {
		return "", ErrInvalidOTP
	}
	return code, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.findWithSecrets(ctx, email, ErrUserNotFound)
	if err != nil {
		return err
	}
	now := s.now()
	if !VerifyOTP(u.PasswordReset, code, now) {
		return ErrInvalidOTP
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal("hash password failed", err)
	}
	return s.users.ResetPassword(ctx, u.ID, hash, now)
}

func (s *AuthService) Me(ctx context.Context, uid string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
