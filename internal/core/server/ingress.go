package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// IngressPolicy 跨域与安全响应头
type IngressPolicy struct {
	AllowedOrigins []string
	// AllowAnyOrigin 开发环境放行任意来源
	AllowAnyOrigin bool
	// HSTS 仅生产环境开启
	HSTS bool
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; " +
	"img-src 'self' data: https:; connect-src 'self' https:"

// Ingress 依次为：安全头、来源校验、CORS 响应头
func Ingress(p IngressPolicy) []gin.HandlerFunc {
	sc := secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy,
	}
	if p.HSTS {
		sc.STSSeconds = 15552000
		sc.STSIncludeSubdomains = true
	}
	return []gin.HandlerFunc{
		secure.New(sc),
		OriginGuard(p),
		cors.New(cors.Config{
			AllowOriginFunc:  func(string) bool { return true }, // OriginGuard 已拦截
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", "Origin", "X-Requested-With", "Accept", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Total-Count", "X-Total-Pages", "X-Page"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// OriginAllowed 精确匹配；https 白名单项同时放行同主机名的其他路径写法
func OriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if origin == a {
			return true
		}
		if !strings.HasPrefix(a, "https://") {
			continue
		}
		ou, err1 := url.Parse(origin)
		au, err2 := url.Parse(a)
		if err1 != nil || err2 != nil {
			continue
		}
		if ou.Scheme == "https" && ou.Hostname() == au.Hostname() && ou.Port() == au.Port() {
			return true
		}
	}
	return false
}

// OriginGuard 无 Origin 的请求（curl、移动端）直接放行；不在白名单的来源返回 403
func OriginGuard(p IngressPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || p.AllowAnyOrigin || OriginAllowed(origin, p.AllowedOrigins) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "CORS policy violation",
			"message": "Origin not allowed",
			"origin":  origin,
		})
	}
}
