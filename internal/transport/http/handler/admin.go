package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/ez"
	resp "bulkbuy-api/internal/transport/http/response"
)

// AdminHandler 管理端接口，整组要求 admin 角色
type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler { return &AdminHandler{users: users} }

type adminListQuery struct {
	pageQuery
	Q string `form:"q"` // 按 email/name 模糊搜
}

func adminUser(u gin.H, active bool, role string) gin.H {
	u["isActive"] = active
	u["role"] = role
	return u
}

func (h *AdminHandler) Mount(e ez.EZ) {
	ez.Register(e, ez.Action[adminListQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *adminListQuery) (gin.H, error) {
			us, pg, err := h.users.AdminList(c.Request.Context(), in.Q, in.page())
			if err != nil {
				return nil, err
			}
			items := make([]gin.H, 0, len(us))
			for i := range us {
				items = append(items, adminUser(listUser(&us[i]), us[i].IsActive, us[i].Role))
			}
			return gin.H{"users": items, "pagination": pg}, nil
		},
	})

	setActive := func(path string, active bool, msg string) {
		ez.Register(e, ez.Action[struct{}, gin.H]{
			Method: http.MethodPost,
			Path:   path,
			Binder: ez.BindNone,
			Auth:   true,
			Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
				u, err := h.users.SetActive(c.Request.Context(), c.Param("id"), active)
				if err != nil {
					return nil, err
				}
				return resp.Body(msg, gin.H{"user": adminUser(listUser(u), u.IsActive, u.Role)}), nil
			},
		})
	}
	setActive("/users/:id/deactivate", false, "User deactivated")
	setActive("/users/:id/activate", true, "User activated")

	ez.Register(e, ez.Action[struct{}, *service.PlatformStats]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.PlatformStats, error) {
			return h.users.PlatformStats(c.Request.Context())
		},
	})
}
