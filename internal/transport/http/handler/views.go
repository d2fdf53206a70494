package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/domain"
)

// pageQuery 通用分页参数
type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q pageQuery) page() domain.Page { return domain.Page{Page: q.Page, Limit: q.Limit} }

func setPageHeaders(c *gin.Context, pg domain.Pagination) {
	c.Header("X-Total-Count", strconv.FormatInt(pg.TotalItems, 10))
	c.Header("X-Total-Pages", strconv.Itoa(pg.TotalPages))
	c.Header("X-Page", strconv.Itoa(pg.CurrentPage))
}

func authUser(u *domain.User) gin.H {
	return gin.H{
		"id":              u.ID,
		"name":            u.Name,
		"email":           u.Email,
		"avatar":          u.Avatar,
		"role":            u.Role,
		"isEmailVerified": u.IsEmailVerified,
		"isOnline":        u.IsOnline,
		"lastActivity":    u.LastActivity,
	}
}

func profileUser(u *domain.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"name":         u.Name,
		"email":        u.Email,
		"avatar":       u.Avatar,
		"role":         u.Role,
		"isOnline":     u.IsOnline,
		"lastActivity": u.LastActivity,
		"createdAt":    u.CreatedAt,
	}
}

func listUser(u *domain.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"avatar":    u.Avatar,
		"isOnline":  u.IsOnline,
		"createdAt": u.CreatedAt,
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate 接受 ISO8601 日期或日期时间；无时区按 UTC
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation(apperr.FieldError{Field: field, Message: "Please provide a valid date"})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
