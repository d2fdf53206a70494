package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "bulkbuy-api/internal/transport/http/response"
)

// SimpleRecovery panic 转 500 JSON；l 为 nil 时不记日志
func SimpleRecovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				if l != nil {
					l.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("rid", c.GetString(KeyRequestID)),
						zap.String("path", c.Request.URL.Path))
				}
				resp.Abort(c, http.StatusInternalServerError, "", gin.H{"error": resp.LabelInternal})
			}
		}()
		c.Next()
	}
}
