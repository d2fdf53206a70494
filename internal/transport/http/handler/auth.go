package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/ez"
	resp "bulkbuy-api/internal/transport/http/response"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Priority 认证路由最先挂载
func (h *AuthHandler) Priority() int { return 10 }

type registerIn struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type emailIn struct {
	Email string `json:"email" binding:"required,email"`
}

type otpIn struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type loginIn struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetIn struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// Mount 挂在 /api/auth 下
func (h *AuthHandler) Mount(e ez.EZ) {
	ez.Register(e, ez.Action[registerIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerIn) (gin.H, error) {
			r, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Email: in.Email, Password: in.Password,
			})
			if err != nil {
				return nil, err
			}
			return resp.Body("Registration successful! Please check your email for the verification code.", gin.H{
				"userId":               r.UserID,
				"email":                r.Email,
				"requiresVerification": r.RequiresVerification,
			}), nil
		},
	})

	ez.Register(e, ez.Action[otpIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/verify-email",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *otpIn) (gin.H, error) {
			r, err := h.svc.VerifyEmail(c.Request.Context(), in.Email, in.OTP)
			if err != nil {
				return nil, err
			}
			return resp.Body("Email verified successfully! You can now log in.", gin.H{
				"token": r.Token,
				"user":  authUser(r.User),
			}), nil
		},
	})

	ez.Register(e, ez.Action[emailIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/resend-verification-otp",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *emailIn) (gin.H, error) {
			if err := h.svc.ResendVerificationOTP(c.Request.Context(), in.Email); err != nil {
				return nil, err
			}
			return resp.Body("Verification code sent to your email", nil), nil
		},
	})

	ez.Register(e, ez.Action[loginIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (gin.H, error) {
			r, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return nil, err
			}
			return resp.Body("Login successful", gin.H{
				"token": r.Token,
				"user":  authUser(r.User),
			}), nil
		},
	})

	ez.Register(e, ez.Action[emailIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/forgot-password",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *emailIn) (gin.H, error) {
			if err := h.svc.ForgotPassword(c.Request.Context(), in.Email); err != nil {
				return nil, err
			}
			return resp.Body("Password reset code sent to your email", nil), nil
		},
	})

	ez.Register(e, ez.Action[otpIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/verify-reset-otp",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *otpIn) (gin.H, error) {
			token, err := h.svc.VerifyResetOTP(c.Request.Context(), in.Email, in.OTP)
			if err != nil {
				return nil, err
			}
			return resp.Body("OTP verified successfully. You can now reset your password.", gin.H{
				"resetToken": token,
			}), nil
		},
	})

	ez.Register(e, ez.Action[resetIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/reset-password",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *resetIn) (gin.H, error) {
			if err := h.svc.ResetPassword(c.Request.Context(), in.Email, in.OTP, in.NewPassword); err != nil {
				return nil, err
			}
			return resp.Body("Password reset successfully. You can now log in with your new password.", nil), nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			ez.EndSession(c)
			h.svc.Logout(c.Request.Context(), ez.UserID(c))
			return resp.Body("Logout successful", nil), nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if u := ez.CurrentUser(c); u != nil {
				return gin.H{"user": profileUser(u)}, nil
			}
			u, err := h.svc.Me(c.Request.Context(), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"user": profileUser(u)}, nil
		},
	})
}
