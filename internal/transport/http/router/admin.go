package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/transport/http/ez"
	"bulkbuy-api/internal/transport/http/handler"
	mdw "bulkbuy-api/internal/transport/http/middleware"
)

// NewAdminEngine 管理端只监听内网地址，整组要求 admin 角色
func NewAdminEngine(d Deps) *gin.Engine {
	mdw.SetupValidator()
	ac := d.Config.App.Admin

	r := gin.New()
	r.Use(
		mdw.RequestID(),
		mdw.SimpleRecovery(d.Log),
		mdw.AccessLog(d.Log, "/health"),
		mdw.Metrics("admin"),
		mdw.Errors(d.Log, d.production()),
		mdw.RateLimit(rate.Limit(50), 100),
		mdw.ConcurrencyLimit(ac.MaxInFlight),
		mdw.MaxBodyBytes(int64(ac.MaxBodyMB)<<20),
		mdw.Timeout(time.Duration(ac.RequestTimeout)*time.Second),
		mdw.AuthJWT(d.JWT),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	admin := ez.New(r.Group("/admin")).WithGuard(mdw.RequireUser(d.Users, domain.RoleAdmin))
	reg := &Registry{}
	reg.Add("/v1", handler.NewAdminHandler(d.UserService))
	reg.MountAll(admin)
	return r
}
