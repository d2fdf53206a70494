package router

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/testutil"
)

func TestAdminEngine(t *testing.T) {
	h := newHarness(t, "development")
	admin := NewAdminEngine(h.deps)
	ctx := context.Background()

	root, err := testutil.SeedUser(ctx, h.store.Users(), "Root", "root@example.com", func(u *domain.User) {
		u.Role = domain.RoleAdmin
	})
	require.NoError(t, err)
	rootTok, err := h.deps.JWT.Issue(root.ID, root.Role)
	require.NoError(t, err)
	userTok, uid := h.signup("Hal", "hal@example.com", "secret1")

	r := h.send(admin, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, r.Code)

	r = h.send(admin, http.MethodGet, "/admin/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = h.send(admin, http.MethodGet, "/admin/v1/users", userTok, nil)
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = h.send(admin, http.MethodPost, "/admin/v1/users/"+uid+"/deactivate", rootTok, nil)
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	assert.Equal(t, false, obj(t, r.Body["user"])["isActive"])

	// 停用后用户端受保护接口返回 401，公开列表不再包含
	r = h.do(http.MethodGet, "/api/users/profile", userTok, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	r = h.do(http.MethodGet, "/api/users", "", nil)
	for _, u := range arr(t, r.Body["users"]) {
		assert.NotEqual(t, uid, obj(t, u)["id"])
	}

	r = h.send(admin, http.MethodGet, "/admin/v1/users?q=hal", rootTok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	users := arr(t, r.Body["users"])
	require.Len(t, users, 1)
	assert.Equal(t, uid, obj(t, users[0])["id"])

	r = h.send(admin, http.MethodPost, "/admin/v1/users/"+uid+"/activate", rootTok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	r = h.do(http.MethodGet, "/api/users/profile", userTok, nil)
	assert.Equal(t, http.StatusOK, r.Code)

	r = h.send(admin, http.MethodGet, "/admin/v1/stats", rootTok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.EqualValues(t, 2, r.Body["users"])

	r = h.send(admin, http.MethodPost, "/admin/v1/users/not-an-id/deactivate", rootTok, gin.H{})
	assert.Equal(t, http.StatusBadRequest, r.Code)
}
