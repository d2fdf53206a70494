package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/testutil"
	"bulkbuy-api/pkg/utils"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendVerificationOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return m.Called(to, code).Error(0)
}

func (m *mockMailer) SendPasswordResetOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return m.Called(to, code).Error(0)
}

type authFixture struct {
	store *testutil.Store
	users *testutil.UserRepo
	mail  *mockMailer
	clock *testutil.Clock
	jwt   *auth.JWTer
	svc   *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	st := testutil.NewStore()
	f := &authFixture{
		store: st,
		users: st.Users(),
		mail:  &mockMailer{},
		clock: testutil.NewClock(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)),
		jwt:   auth.NewJWTer("test-secret", "bulkbuy", time.Hour),
	}
	f.svc = NewAuthService(AuthDeps{
		Users:  f.users,
		Hasher: auth.NewBcryptHasher(4),
		Tokens: f.jwt,
		Mailer: f.mail,
		Now:    f.clock.Now,
	})
	return f
}

func (f *authFixture) otpFor(t *testing.T, email string) string {
	t.Helper()
	u, err := f.users.FindByEmailWithSecrets(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, u.EmailVerification)
	return u.EmailVerification.Code
}

func (f *authFixture) register(t *testing.T, name, email, pw string) *RegisterResult {
	t.Helper()
	f.mail.On("SendVerificationOTP", utils.NormalizeEmail(email), mock.Anything).Return(nil).Once()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: pw})
	require.NoError(t, err)
	return res
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res := f.register(t, "Alice", "Alice@Example.com", "secret1")
	assert.True(t, res.RequiresVerification)
	assert.Equal(t, "alice@example.com", res.Email)

	// 未验证不能登录
	_, err := f.svc.Login(ctx, "alice@example.com", "secret1")
	require.ErrorIs(t, err, ErrEmailNotVerified)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, true, ae.Details["requiresVerification"])
	assert.Equal(t, "alice@example.com", ae.Details["email"])

	code := f.otpFor(t, "alice@example.com")
	assert.Len(t, code, 6)

	ar, err := f.svc.VerifyEmail(ctx, "alice@example.com", code)
	require.NoError(t, err)
	assert.True(t, ar.User.IsEmailVerified)
	assert.Empty(t, ar.User.PasswordHash)
	claims, err := f.jwt.Parse(ar.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, claims.UID)

	// 验证码已清空，再次验证报已验证
	_, err = f.svc.VerifyEmail(ctx, "alice@example.com", code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	u, err := f.users.FindByEmailWithSecrets(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, u.EmailVerification)

	lr, err := f.svc.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, lr.User.IsOnline)
	require.NotNil(t, lr.User.LastLogin)
	assert.Equal(t, f.clock.Now(), *lr.User.LastLogin)

	stored, err := f.users.FindByID(ctx, res.UserID)
	require.NoError(t, err)
	assert.True(t, stored.IsOnline)
	assert.Equal(t, f.clock.Now(), stored.LastActivity)

	f.mail.AssertExpectations(t)
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Alice", "alice@example.com", "secret1")

	for _, email := range []string{"alice@example.com", "ALICE@EXAMPLE.COM", "  Alice@Example.com "} {
		_, err := f.svc.Register(context.Background(), RegisterInput{Name: "X", Email: email, Password: "other-password"})
		assert.ErrorIs(t, err, ErrUserExists, email)
	}
}

func TestRegisterRollsBackWhenMailFails(t *testing.T) {
	f := newAuthFixture(t)
	f.mail.On("SendVerificationOTP", "carol@example.com", mock.Anything).Return(errors.New("smtp down")).Once()

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Carol", Email: "carol@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrVerificationMail)

	_, err = f.users.FindByEmail(context.Background(), "carol@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	n, _ := f.users.Count(context.Background())
	assert.Zero(t, n)
}

func TestVerifyEmailFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "Dan", "dan@example.com", "secret1")
	code := f.otpFor(t, "dan@example.com")

	_, err := f.svc.VerifyEmail(ctx, "nobody@example.com", code)
	assert.ErrorIs(t, err, ErrUserNotFound)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.svc.VerifyEmail(ctx, "dan@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	f.clock.Advance(10*time.Minute + time.Second)
	_, err = f.svc.VerifyEmail(ctx, "dan@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestOTPValidExactlyAtExpiry(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Eve", "eve@example.com", "secret1")
	code := f.otpFor(t, "eve@example.com")

	f.clock.Advance(10 * time.Minute)
	_, err := f.svc.VerifyEmail(context.Background(), "eve@example.com", code)
	assert.NoError(t, err)
}

func TestResendVerificationOTP(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "Fay", "fay@example.com", "secret1")

	f.clock.Advance(9 * time.Minute)
	f.mail.On("SendVerificationOTP", "fay@example.com", mock.Anything).Return(nil).Once()
	require.NoError(t, f.svc.ResendVerificationOTP(ctx, "fay@example.com"))
	second := f.otpFor(t, "fay@example.com")

	// 新码从重发时刻起算 10 分钟
	f.clock.Advance(5 * time.Minute)
	_, err := f.svc.VerifyEmail(ctx, "fay@example.com", second)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResendVerificationOTP(ctx, "fay@example.com"), ErrAlreadyVerified)
	assert.ErrorIs(t, f.svc.ResendVerificationOTP(ctx, "ghost@example.com"), ErrUserNotFound)
}

func TestLoginFailureOrder(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	hasher := auth.NewBcryptHasher(4)
	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)

	_, err = testutil.SeedUser(ctx, f.users, "Gina", "gina@example.com", func(u *domain.User) {
		u.PasswordHash = hash
		u.IsActive = false
		u.IsEmailVerified = false
	})
	require.NoError(t, err)
	_, err = testutil.SeedUser(ctx, f.users, "Hank", "hank@example.com", func(u *domain.User) {
		u.PasswordHash = hash
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		email string
		pw    string
		want  error
	}{
		{"unknown email", "nobody@example.com", "secret1", ErrInvalidCredentials},
		{"deactivated before unverified", "gina@example.com", "wrong", ErrAccountDeactivated},
		{"wrong password", "hank@example.com", "wrong", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tt.email, tt.pw)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = f.svc.Login(ctx, "hank@example.com", "secret1")
	assert.NoError(t, err)
}

func TestLogoutMarksOffline(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := testutil.SeedUser(ctx, f.users, "Ivy", "ivy@example.com", func(u *domain.User) { u.IsOnline = true })
	require.NoError(t, err)

	f.svc.Logout(ctx, u.ID)
	got, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOnline)

	// 未知用户不报错
	f.svc.Logout(ctx, "507f1f77bcf86cd799439011")
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	hash, _ := auth.NewBcryptHasher(4).Hash("old-password")
	u, err := testutil.SeedUser(ctx, f.users, "Jay", "jay@example.com", func(u *domain.User) { u.PasswordHash = hash })
	require.NoError(t, err)
	_, err = testutil.SeedUser(ctx, f.users, "Kim", "kim@example.com", func(u *domain.User) { u.IsEmailVerified = false })
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "nobody@example.com"), ErrResetUserNotFound)
	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "kim@example.com"), ErrVerifyEmailFirst)

	f.mail.On("SendPasswordResetOTP", "jay@example.com", mock.Anything).Return(nil).Once()
	require.NoError(t, f.svc.ForgotPassword(ctx, "jay@example.com"))
	withSecrets, err := f.users.FindByEmailWithSecrets(ctx, "jay@example.com")
	require.NoError(t, err)
	code := withSecrets.PasswordReset.Code

	_, err = f.svc.VerifyResetOTP(ctx, "jay@example.com", "12345")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	tok, err := f.svc.VerifyResetOTP(ctx, "jay@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, code, tok)

	// 校验后仍可再次校验（直到过期或被使用）
	_, err = f.svc.VerifyResetOTP(ctx, "jay@example.com", code)
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetPassword(ctx, "jay@example.com", code, "new-password"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "jay@example.com", code, "another"), ErrInvalidOTP)

	_, err = f.svc.Login(ctx, "jay@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	lr, err := f.svc.Login(ctx, "jay@example.com", "new-password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, lr.User.ID)
}

func TestResetPasswordRejectsExpiredCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := testutil.SeedUser(ctx, f.users, "Lee", "lee@example.com")
	require.NoError(t, err)

	f.mail.On("SendPasswordResetOTP", "lee@example.com", mock.Anything).Return(errors.New("down")).Once()
	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "lee@example.com"), ErrResetMail)

	f.mail.On("SendPasswordResetOTP", "lee@example.com", mock.Anything).Return(nil).Once()
	require.NoError(t, f.svc.ForgotPassword(ctx, "lee@example.com"))
	u, _ := f.users.FindByEmailWithSecrets(ctx, "lee@example.com")

	f.clock.Advance(11 * time.Minute)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "lee@example.com", u.PasswordReset.Code, "new-password"), ErrInvalidOTP)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := testutil.SeedUser(ctx, f.users, "Max", "max@example.com")
	require.NoError(t, err)

	got, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name)

	_, err = f.svc.Me(ctx, "507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.svc.Me(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
