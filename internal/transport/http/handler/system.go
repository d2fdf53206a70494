package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"bulkbuy-api/internal/domain"
	resp "bulkbuy-api/internal/transport/http/response"
)

const apiVersion = "1.0.0"

// StoreStatus 存储层连通性
type StoreStatus interface {
	Driver() string
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	env      string
	started  time.Time
	store    StoreStatus
	users    domain.UserRepository
	products domain.ProductRepository
	comments domain.CommentRepository
}

func NewSystemHandler(env string, store StoreStatus, users domain.UserRepository, products domain.ProductRepository, comments domain.CommentRepository) *SystemHandler {
	return &SystemHandler{
		env:      env,
		started:  time.Now(),
		store:    store,
		users:    users,
		products: products,
		comments: comments,
	}
}

// Mount 直接挂在引擎根上
func (h *SystemHandler) Mount(r *gin.Engine) {
	r.GET("/", h.banner)
	r.GET("/api/health", h.health)
	r.GET("/api/db-status", h.dbStatus)
	r.GET("/api/docs", h.docs)
	r.NoRoute(h.notFound)
}

func (h *SystemHandler) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "BulkBuy API Server",
		"status":    "running",
		"timestamp": time.Now().UTC(),
		"version":   apiVersion,
		"endpoints": gin.H{
			"health":   "/api/health",
			"auth":     "/api/auth",
			"products": "/api/products",
			"comments": "/api/comments",
			"users":    "/api/users",
		},
	})
}

func memory() gin.H {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return gin.H{
		"heapAlloc":  m.HeapAlloc,
		"heapSys":    m.HeapSys,
		"sys":        m.Sys,
		"numGC":      m.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}
}

func (h *SystemHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC(),
		"environment": h.env,
		"uptime":      time.Since(h.started).Seconds(),
		"memory":      memory(),
	})
}

func (h *SystemHandler) dbStatus(c *gin.Context) {
	ctx := c.Request.Context()
	fail := func(err error) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"error":   "Failed to get database status",
			"message": err.Error(),
		})
	}
	if err := h.store.Ping(ctx); err != nil {
		fail(err)
		return
	}

	var users, products, comments int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { users, err = h.users.Count(gctx); return })
	g.Go(func() (err error) { products, err = h.products.Count(gctx, domain.ProductFilter{}); return })
	g.Go(func() (err error) { comments, err = h.comments.Count(gctx, domain.CommentFilter{}); return })
	if err := g.Wait(); err != nil {
		fail(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "connected",
		"driver": h.store.Driver(),
		"collections": gin.H{
			"users":    users,
			"products": products,
			"comments": comments,
		},
	})
}

func (h *SystemHandler) docs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":   "BulkBuy API Documentation",
		"version": apiVersion,
		"endpoints": gin.H{
			"auth": gin.H{
				"POST /api/auth/register":                "Register a new user",
				"POST /api/auth/verify-email":            "Verify email with OTP",
				"POST /api/auth/resend-verification-otp": "Resend verification OTP",
				"POST /api/auth/login":                   "Login user",
				"POST /api/auth/logout":                  "Logout user (auth required)",
				"POST /api/auth/forgot-password":         "Request password reset",
				"POST /api/auth/verify-reset-otp":        "Verify password reset OTP",
				"POST /api/auth/reset-password":          "Reset password with OTP",
				"GET /api/auth/me":                       "Get current user (auth required)",
			},
			"products": gin.H{
				"GET /api/products":               "Get all products",
				"POST /api/products":              "Create new product (auth required)",
				"GET /api/products/:id":           "Get product by ID",
				"PUT /api/products/:id":           "Update product (creator only)",
				"DELETE /api/products/:id":        "Delete product (creator only)",
				"POST /api/products/:id/interest": "Toggle interest in product (auth required)",
				"GET /api/products/user/:userId":  "Get products created by user",
			},
			"comments": gin.H{
				"GET /api/comments/product/:productId": "Get comments for product",
				"GET /api/comments/user/:userId":       "Get comments by user",
				"POST /api/comments":                   "Create comment (auth required)",
				"PUT /api/comments/:id":                "Update comment (author only)",
				"DELETE /api/comments/:id":             "Delete comment (author only)",
				"POST /api/comments/:id/like":          "Toggle like on comment (auth required)",
			},
			"users": gin.H{
				"GET /api/users":                "List users",
				"GET /api/users/profile":        "Get current user profile (auth required)",
				"PUT /api/users/profile":        "Update user profile (auth required)",
				"GET /api/users/online":         "List online users",
				"POST /api/users/heartbeat":     "Keep current user online (auth required)",
				"GET /api/users/:id":            "Get user by ID",
				"GET /api/users/:id/stats":      "Get user statistics",
				"GET /api/users/:id/products":   "Get products created by user",
				"GET /api/users/:id/interested": "Get products user is interested in",
			},
		},
	})
}

var availableEndpoints = []string{
	"GET /",
	"GET /api/health",
	"GET /api/docs",
	"POST /api/auth/register",
	"POST /api/auth/login",
	"GET /api/products",
	"POST /api/products",
}

func (h *SystemHandler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":              resp.LabelRouteNotFound,
		"message":            fmt.Sprintf("The endpoint %s %s does not exist", c.Request.Method, c.Request.URL.RequestURI()),
		"availableEndpoints": availableEndpoints,
	})
}
