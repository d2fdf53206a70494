package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/transport/http/ez"
	resp "bulkbuy-api/internal/transport/http/response"
)

type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

type commentCreateIn struct {
	ProductID     string `json:"productId" binding:"required"`
	Text          string `json:"text" binding:"required"`
	ParentComment string `json:"parentComment"`
}

type commentUpdateIn struct {
	Text string `json:"text" binding:"required"`
}

// Mount 挂在 /api/comments 下
func (h *CommentHandler) Mount(e ez.EZ) {
	ez.Register(e, ez.Action[pageQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "/product/:productId",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQuery) (gin.H, error) {
			vs, pg, err := h.svc.ListForProduct(c.Request.Context(), c.Param("productId"), in.page())
			if err != nil {
				return nil, err
			}
			return gin.H{"comments": vs, "pagination": pg}, nil
		},
	})

	ez.Register(e, ez.Action[pageQuery, gin.H]{
		Method: http.MethodGet,
		Path:   "/user/:userId",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQuery) (gin.H, error) {
			vs, pg, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"), in.page())
			if err != nil {
				return nil, err
			}
			return gin.H{"comments": vs, "pagination": pg}, nil
		},
	})

	ez.Register(e, ez.Action[commentCreateIn, gin.H]{
		Method: http.MethodPost,
		Path:   "",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *commentCreateIn) (gin.H, error) {
			v, err := h.svc.Create(c.Request.Context(), ez.UserID(c), service.CreateCommentInput{
				ProductID:     in.ProductID,
				ParentComment: in.ParentComment,
				Text:          in.Text,
			})
			if err != nil {
				return nil, err
			}
			return resp.Body("Comment created successfully", gin.H{"comment": v}), nil
		},
	})

	ez.Register(e, ez.Action[commentUpdateIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *commentUpdateIn) (gin.H, error) {
			v, err := h.svc.Update(c.Request.Context(), c.Param("id"), ez.UserID(c), in.Text)
			if err != nil {
				return nil, err
			}
			return resp.Body("Comment updated successfully", gin.H{"comment": v}), nil
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
			return resp.Body("Comment deleted successfully", nil), nil
		},
	})

	ez.Register(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/:id/like",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			r, err := h.svc.ToggleLike(c.Request.Context(), c.Param("id"), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			msg := "Like removed"
			if r.IsLiked {
				msg = "Like added"
			}
			return resp.Body(msg, gin.H{"isLiked": r.IsLiked, "likeCount": r.LikeCount}), nil
		},
	})
}
