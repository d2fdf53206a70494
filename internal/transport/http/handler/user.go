package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/ez"
	resp "bulkbuy-api/internal/transport/http/response"
)

type UserHandler struct {
	users    *service.UserService
	products *service.ProductService
}

func NewUserHandler(users *service.UserService, products *service.ProductService) *UserHandler {
	return &UserHandler{users: users, products: products}
}

// omitnil：字段缺省时不改，显式给出则必须合法
type profileIn struct {
	Name   *string `json:"name" binding:"omitnil,min=2,max=50"`
	Email  *string `json:"email" binding:"omitnil,email"`
	Avatar *string `json:"avatar" binding:"omitnil,http_url"`
}

type userListQuery struct {
	pageQuery
	Search string `form:"search"`
}

type userProductsQuery struct {
	pageQuery
	Status string `form:"status" binding:"omitempty,oneof=active completed cancelled"`
}

type onlineQuery struct {
	Limit int `form:"limit"`
}

// Mount 挂在 /api/users 下；静态路径先于 /:id 注册
func (h *UserHandler) Mount(e ez.EZ) {
	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if u := ez.CurrentUser(c); u != nil {
				return gin.H{"user": profileUser(u)}, nil
			}
			u, err := h.users.GetProfile(c.Request.Context(), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"user": profileUser(u)}, nil
		},
	})

	ez.Register(e, ez.Action[profileIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/profile",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *profileIn) (gin.H, error) {
			u, err := h.users.UpdateProfile(c.Request.Context(), ez.UserID(c), service.ProfileInput{
				Name:   in.Name,
				Email:  in.Email,
				Avatar: in.Avatar,
			})
			if err != nil {
				return nil, err
			}
			return resp.Body("Profile updated successfully", gin.H{"user": profileUser(u)}), nil
		},
	})

	ez.Register(e, ez.Action[onlineQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "/online",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *onlineQuery) (gin.H, error) {
			us, err := h.users.ListOnline(c.Request.Context(), in.Limit)
			if err != nil {
				return nil, err
			}
			out := make([]gin.H, 0, len(us))
			for i := range us {
				out = append(out, listUser(&us[i]))
			}
			return gin.H{"users": out, "count": len(out)}, nil
		},
	})

	ez.Register(e, ez.Action[struct{}, *service.Heartbeat]{
		Method: http.MethodPost,
		Path:   "/heartbeat",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Heartbeat, error) {
			return h.users.Heartbeat(c.Request.Context(), ez.UserID(c))
		},
	})

	ez.Register(e, ez.Action[userListQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *userListQuery) (gin.H, error) {
			us, pg, err := h.users.List(c.Request.Context(), in.Search, in.page())
			if err != nil {
				return nil, err
			}
			out := make([]gin.H, 0, len(us))
			for i := range us {
				out = append(out, listUser(&us[i]))
			}
			return gin.H{"users": out, "pagination": pg}, nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			pu, err := h.users.GetPublic(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{"user": pu}, nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id/stats",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			u, st, err := h.users.Stats(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{
				"user": gin.H{
					"id":        u.ID,
					"name":      u.Name,
					"avatar":    u.Avatar,
					"createdAt": u.CreatedAt,
				},
				"stats": st,
			}, nil
		},
	})

	ez.Register(e, ez.Action[userProductsQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id/products",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *userProductsQuery) (gin.H, error) {
			vs, pg, err := h.products.ListByOwner(c.Request.Context(), c.Param("id"), in.Status, in.page())
			if err != nil {
				return nil, err
			}
			return gin.H{"products": vs, "pagination": pg}, nil
		},
	})

	ez.Register(e, ez.Action[pageQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id/interested",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQuery) (gin.H, error) {
			vs, pg, err := h.products.ListInterested(c.Request.Context(), c.Param("id"), in.page())
			if err != nil {
				return nil, err
			}
			return gin.H{"products": vs, "pagination": pg}, nil
		},
	})
}
