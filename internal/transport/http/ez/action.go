package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/domain"
)

// 上下文键，由鉴权中间件写入
const (
	KeyUserID = "userId"
	KeyRole   = "role"
	KeyUser   = "user" // *domain.User，受保护路由才有

	// KeySessionEnded 由登出处理器写入
	KeySessionEnded = "sessionEnded"
)

var (
	ErrAuthRequired = apperr.Unauthorized("AUTH_REQUIRED", "Access denied. No token provided.")
	ErrForbidden    = apperr.Forbidden("FORBIDDEN", "Access denied. Insufficient permissions.")
)

// EZ 路由组的轻封装；guard 在 Auth 动作前执行
type EZ struct {
	g     *gin.RouterGroup
	guard []gin.HandlerFunc
}

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// WithGuard 返回附带鉴权链的副本
func (e EZ) WithGuard(h ...gin.HandlerFunc) EZ {
	e.guard = append(append([]gin.HandlerFunc(nil), e.guard...), h...)
	return e
}

// Group 子路径
func (e EZ) Group(path string) EZ {
	e.g = e.g.Group(path)
	return e
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// Action 一个接口：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/auth/login"、"/products/:id/interest"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录
	Roles   []string // 限定角色（可选）
	Status  int      // 成功状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

// Fail 记录错误并终止，由 Errors 中间件统一输出
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// UserID 当前登录用户
func UserID(c *gin.Context) string { return c.GetString(KeyUserID) }

// CurrentUser 鉴权守卫已加载的用户；未经守卫时为 nil
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(KeyUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// EndSession 标记本请求为登出
func EndSession(c *gin.Context) { c.Set(KeySessionEnded, true) }

func SessionEnded(c *gin.Context) bool { return c.GetBool(KeySessionEnded) }

func hasRole(c *gin.Context, roles []string) bool {
	role := c.GetString(KeyRole)
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// Register 在当前 EZ 下注册动作接口
func Register[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth && UserID(c) == "" {
			Fail(c, ErrAuthRequired)
			return
		}
		if len(a.Roles) > 0 && !hasRole(c, a.Roles) {
			Fail(c, ErrForbidden)
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			_ = c.Error(bindErr).SetType(gin.ErrorTypeBind)
			c.Abort()
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(status, out)
	}

	chain := []gin.HandlerFunc{}
	if a.Auth {
		chain = append(chain, e.guard...)
	}
	chain = append(chain, h)

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, chain...)
	case http.MethodPut:
		e.g.PUT(a.Path, chain...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, chain...)
	default: // 默认 POST
		e.g.POST(a.Path, chain...)
	}
}
