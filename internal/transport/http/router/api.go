package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/core/config"
	"bulkbuy-api/internal/core/server"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/ez"
	"bulkbuy-api/internal/transport/http/handler"
	mdw "bulkbuy-api/internal/transport/http/middleware"
)

// Deps 两个引擎共用的依赖
type Deps struct {
	Log    *zap.Logger
	Config *config.Config
	JWT    *auth.JWTer

	Users    domain.UserRepository
	Products domain.ProductRepository
	Comments domain.CommentRepository
	Store    handler.StoreStatus

	Auth           *service.AuthService
	ProductService *service.ProductService
	CommentService *service.CommentService
	UserService    *service.UserService
	// Presence 为 nil 时不记录活跃时间
	Presence mdw.ActivityToucher
}

func (d Deps) production() bool { return d.Config.App.IsProduction() }

// APIModules /api 下的资源模块
func APIModules(d Deps) *Registry {
	r := &Registry{}
	r.Add("/auth", handler.NewAuthHandler(d.Auth))
	r.Add("/products", handler.NewProductHandler(d.ProductService))
	r.Add("/comments", handler.NewCommentHandler(d.CommentService))
	r.Add("/users", handler.NewUserHandler(d.UserService, d.ProductService))
	return r
}

func NewAPIEngine(d Deps) *gin.Engine {
	mdw.SetupValidator()
	hc := d.Config.App.HTTP

	r := server.NewRouter(d.Log, server.Options{
		Name:       d.Config.App.Name,
		Production: d.production(),
		Ingress: server.IngressPolicy{
			AllowedOrigins: d.Config.CORS.AllowedOrigins,
			AllowAnyOrigin: !d.production(),
			HSTS:           d.production(),
		},
		SkipLogPaths: []string{"/api/health", "/metrics"},
	})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.Metrics("api"),
		mdw.Errors(d.Log, d.production()),
		mdw.ConcurrencyLimit(hc.MaxInFlight),
		mdw.MaxBodyBytes(int64(hc.MaxBodyMB)<<20),
		mdw.Timeout(time.Duration(hc.RequestTimeout)*time.Second),
		mdw.AuthJWT(d.JWT),
	)
	if d.Presence != nil {
		r.Use(mdw.TrackActivity(d.Presence))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.NewSystemHandler(d.Config.App.Env, d.Store, d.Users, d.Products, d.Comments).Mount(r)

	// 限流只作用于 /api
	api := r.Group("/api")
	rl := d.Config.RateLimit
	api.Use(mdw.RateLimitPerIP(time.Duration(rl.WindowMin)*time.Minute, rl.Max))

	e := ez.New(api).WithGuard(mdw.RequireUser(d.Users))
	APIModules(d).MountAll(e)
	return r
}
