package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/transport/http/ez"
)

const (
	KeyClaims   = "claims"
	keyTokenBad = "tokenInvalid"
)

var (
	ErrTokenInvalid      = apperr.Unauthorized("TOKEN_INVALID", "Token is not valid")
	ErrTokenUserInactive = apperr.Unauthorized("USER_INACTIVE", "Token is not valid or user is deactivated")
)

// AuthJWT 解析可选的 Bearer 令牌；有效时写入 userId/role，无效时只做标记
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.Next()
			return
		}
		claims, err := j.Parse(strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")))
		if err != nil {
			c.Set(keyTokenBad, true)
			c.Next()
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(ez.KeyUserID, claims.UID)
		c.Set(ez.KeyRole, claims.Role)
		c.Next()
	}
}

// RequireUser 受保护路由：令牌必须有效且用户存在并处于启用状态
// roles 非空时按数据库中的角色校验
func RequireUser(users domain.UserRepository, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := ez.UserID(c)
		if uid == "" {
			if c.GetBool(keyTokenBad) {
				ez.Fail(c, ErrTokenInvalid)
				return
			}
			ez.Fail(c, ez.ErrAuthRequired)
			return
		}
		u, err := users.FindByID(c.Request.Context(), uid)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
			ez.Fail(c, ErrTokenInvalid)
			return
		}
		if err != nil {
			ez.Fail(c, err)
			return
		}
		if !u.IsActive {
			ez.Fail(c, ErrTokenUserInactive)
			return
		}
		if len(roles) > 0 {
			ok := false
			for _, r := range roles {
				if u.Role == r {
					ok = true
					break
				}
			}
			if !ok {
				ez.Fail(c, ez.ErrForbidden)
				return
			}
		}
		c.Set(ez.KeyRole, u.Role)
		c.Set(ez.KeyUser, u)
		c.Next()
	}
}
