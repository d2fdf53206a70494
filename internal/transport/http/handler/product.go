package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/ez"
	resp "bulkbuy-api/internal/transport/http/response"
)

type ProductHandler struct {
	svc *service.ProductService
}

func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type productListQuery struct {
	pageQuery
	Category string `form:"category"`
	Search   string `form:"search"`
	Sort     string `form:"sort" binding:"omitempty,oneof=newest oldest price-low price-high"`
}

type productCreateIn struct {
	Title                 string   `json:"title" binding:"required,min=3,max=100"`
	Description           string   `json:"description" binding:"required,min=10,max=1000"`
	Price                 *float64 `json:"price" binding:"required,gte=0"`
	Image                 string   `json:"image" binding:"omitempty,url"`
	Category              string   `json:"category" binding:"required"`
	EstimatedPurchaseDate string   `json:"estimatedPurchaseDate" binding:"required"`
	MinQuantity           *int     `json:"minQuantity" binding:"omitempty,gte=1"`
	MaxQuantity           *int     `json:"maxQuantity" binding:"omitempty,gte=1"`
	Tags                  []string `json:"tags" binding:"omitempty,max=20,dive,max=30"`
	Location              string   `json:"location" binding:"omitempty,max=100"`
}

type productUpdateIn struct {
	Title                 *string  `json:"title" binding:"omitempty,min=3,max=100"`
	Description           *string  `json:"description" binding:"omitempty,min=10,max=1000"`
	Price                 *float64 `json:"price" binding:"omitempty,gte=0"`
	Image                 *string  `json:"image" binding:"omitempty,url"`
	Category              *string  `json:"category"`
	EstimatedPurchaseDate *string  `json:"estimatedPurchaseDate"`
	MinQuantity           *int     `json:"minQuantity" binding:"omitempty,gte=1"`
	MaxQuantity           *int     `json:"maxQuantity" binding:"omitempty,gte=1"`
	Tags                  []string `json:"tags" binding:"omitempty,max=20,dive,max=30"`
	Location              *string  `json:"location" binding:"omitempty,max=100"`
	Status                *string  `json:"status" binding:"omitempty,oneof=active completed cancelled"`
}

// Mount 挂在 /api/products 下
func (h *ProductHandler) Mount(e ez.EZ) {
	ez.Register(e, ez.Action[productListQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *productListQuery) (gin.H, error) {
			vs, pg, err := h.svc.List(c.Request.Context(), service.ListProductsInput{
				Category: in.Category,
				Search:   in.Search,
				Sort:     domain.ProductSort(in.Sort),
				Page:     in.page(),
			})
			if err != nil {
				return nil, err
			}
			return gin.H{"products": vs, "pagination": pg}, nil
		},
	})

	// 响应体保持裸数组，分页信息放在响应头；limit 缺省取上限
	ez.Register(e, ez.Action[pageQuery, []service.ProductView]{
		Method: http.MethodGet,
		Path:   "/user/:userId",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQuery) ([]service.ProductView, error) {
			p := in.page()
			if p.Limit == 0 {
				p.Limit = domain.MaxLimit
			}
			vs, pg, err := h.svc.ListByOwner(c.Request.Context(), c.Param("userId"), "", p)
			if err != nil {
				return nil, err
			}
			setPageHeaders(c, pg)
			return vs, nil
		},
	})

	ez.Register(e, ez.Action[struct{}, *service.ProductView]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.ProductView, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.Register(e, ez.Action[productCreateIn, gin.H]{
		Method: http.MethodPost,
		Path:   "",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *productCreateIn) (gin.H, error) {
			date, err := parseDate("estimatedPurchaseDate", in.EstimatedPurchaseDate)
			if err != nil {
				return nil, err
			}
			v, err := h.svc.Create(c.Request.Context(), ez.UserID(c), service.CreateProductInput{
				Title:                 in.Title,
				Description:           in.Description,
				Price:                 *in.Price,
				Image:                 in.Image,
				Category:              in.Category,
				EstimatedPurchaseDate: date,
				MinQuantity:           in.MinQuantity,
				MaxQuantity:           in.MaxQuantity,
				Tags:                  in.Tags,
				Location:              in.Location,
			})
			if err != nil {
				return nil, err
			}
			return resp.Body("Product created successfully", gin.H{"product": v}), nil
		},
	})

	ez.Register(e, ez.Action[productUpdateIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *productUpdateIn) (gin.H, error) {
			upd := service.UpdateProductInput{
				Title:       in.Title,
				Description: in.Description,
				Price:       in.Price,
				Image:       in.Image,
				Category:    in.Category,
				MinQuantity: in.MinQuantity,
				MaxQuantity: in.MaxQuantity,
				Tags:        in.Tags,
				Location:    in.Location,
				Status:      in.Status,
			}
			if in.EstimatedPurchaseDate != nil {
				date, err := parseDate("estimatedPurchaseDate", *in.EstimatedPurchaseDate)
				if err != nil {
					return nil, err
				}
				upd.EstimatedPurchaseDate = &date
			}
			v, err := h.svc.Update(c.Request.Context(), c.Param("id"), ez.UserID(c), upd)
			if err != nil {
				return nil, err
			}
			return resp.Body("Product updated successfully", gin.H{"product": v}), nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.svc.Delete(c.Request.Context(), c.Param("id"), ez.UserID(c)); err != nil {
				return nil, err
			}
			return resp.Body("Product deleted successfully", nil), nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/:id/interest",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			r, err := h.svc.ToggleInterest(c.Request.Context(), c.Param("id"), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			msg := "Interest removed"
			if r.IsInterested {
				msg = "Interest added"
			}
			return resp.Body(msg, gin.H{
				"product":         r.Product,
				"isInterested":    r.IsInterested,
				"interestedCount": r.InterestedCount,
			}), nil
		},
	})
}
