package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "bulkbuy-api/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		rateLimited.WithLabelValues("global").Inc()
		resp.Abort(c, http.StatusTooManyRequests, "", nil)
	}
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitPerIP 每个 IP 在 window 内最多 max 次，按令牌桶平滑补充
func RateLimitPerIP(window time.Duration, max int) gin.HandlerFunc {
	if window <= 0 || max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	every := rate.Every(window / time.Duration(max))
	retryAfter := int(window / time.Second)

	var mu sync.Mutex
	buckets := make(map[string]*ipBucket)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		now := time.Now()
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &ipBucket{lim: rate.NewLimiter(every, max)}
			buckets[ip] = b
		}
		b.seen = now
		// 清理长时间不活跃的 IP
		if now.Sub(lastSweep) > window {
			for k, v := range buckets {
				if now.Sub(v.seen) > window {
					delete(buckets, k)
				}
			}
			lastSweep = now
		}
		allowed := b.lim.AllowN(now, 1)
		mu.Unlock()

		if allowed {
			c.Next()
			return
		}
		rateLimited.WithLabelValues("ip").Inc()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":      resp.LabelTooManyRequests,
			"message":    resp.LabelTooManyRequests,
			"retryAfter": retryAfter,
		})
	}
}
