package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/transport/http/ez"
)

// ActivityToucher 记录用户活跃，不阻塞请求
type ActivityToucher interface {
	Touch(uid string)
}

// SessionEnder 可选；登出请求结束时调用
type SessionEnder interface {
	End(ctx context.Context, uid string)
}

// TrackActivity 带有效令牌的请求在处理完成后刷新 lastActivity；
// 登出请求不刷新
func TrackActivity(t ActivityToucher) gin.HandlerFunc {
	ender, _ := t.(SessionEnder)
	return func(c *gin.Context) {
		uid := ez.UserID(c)
		c.Next()
		if uid == "" {
			return
		}
		if ez.SessionEnded(c) {
			if ender != nil {
				ender.End(c.Request.Context(), uid)
			}
			return
		}
		t.Touch(uid)
	}
}
