package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/core/config"
	"bulkbuy-api/internal/core/tasks"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/service"
	"bulkbuy-api/internal/testutil"
	"bulkbuy-api/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

// codeMailer 记录最近一次发给每个邮箱的验证码
type codeMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *codeMailer) put(to, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
}

func (m *codeMailer) SendVerificationOTP(_ context.Context, to, _, code string, _ time.Duration) error {
	m.put(to, code)
	return nil
}

func (m *codeMailer) SendPasswordResetOTP(_ context.Context, to, _, code string, _ time.Duration) error {
	m.put(to, code)
	return nil
}

func (m *codeMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

type fakeStore struct{ err error }

func (f fakeStore) Driver() string             { return "memory" }
func (f fakeStore) Ping(context.Context) error { return f.err }

type touchRecorder struct {
	mu   sync.Mutex
	uids []string
}

func (r *touchRecorder) Touch(uid string) {
	r.mu.Lock()
	r.uids = append(r.uids, uid)
	r.mu.Unlock()
}

func (r *touchRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.uids...)
}

type harness struct {
	t       *testing.T
	store   *testutil.Store
	mail    *codeMailer
	touches *touchRecorder
	deps    Deps
	api     *gin.Engine
}

func testConfig(env string) *config.Config {
	return &config.Config{
		App: config.App{
			Name:  "bulkbuy-test",
			Env:   env,
			HTTP:  config.HTTP{RequestTimeout: 5, MaxBodyMB: 1, MaxInFlight: 100},
			Admin: config.HTTP{RequestTimeout: 5, MaxBodyMB: 1, MaxInFlight: 10},
		},
		CORS:      config.CORS{AllowedOrigins: []string{"https://bulkbuy.example.com"}},
		RateLimit: config.RateLimit{WindowMin: 15, Max: 1000},
	}
}

func newHarness(t *testing.T, env string) *harness {
	t.Helper()
	st := testutil.NewStore()
	mail := &codeMailer{codes: map[string]string{}}
	touches := &touchRecorder{}
	l := zap.NewNop()
	jwter := auth.NewJWTer("test-secret", "bulkbuy", time.Hour)

	products := service.NewProductService(st.Products(), st.Comments(), st.Users(), l)
	deps := Deps{
		Log:      l,
		Config:   testConfig(env),
		JWT:      jwter,
		Users:    st.Users(),
		Products: st.Products(),
		Comments: st.Comments(),
		Store:    fakeStore{},
		Auth: service.NewAuthService(service.AuthDeps{
			Users:  st.Users(),
			Hasher: auth.NewBcryptHasher(4),
			Tokens: jwter,
			Mailer: mail,
			Log:    l,
		}),
		ProductService: products,
		CommentService: service.NewCommentService(st.Comments(), st.Products(), st.Users(), l),
		UserService:    service.NewUserService(st.Users(), st.Products(), st.Comments(), nil, 0, l),
		Presence:       touches,
	}
	return &harness{t: t, store: st, mail: mail, touches: touches, deps: deps, api: NewAPIEngine(deps)}
}

type reply struct {
	Code int
	Body map[string]any
	Raw  []byte
	Hdr  http.Header
}

func (h *harness) send(r http.Handler, method, path, token string, body any, hdr ...string) reply {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := reply{Code: w.Code, Raw: w.Body.Bytes(), Hdr: w.Header()}
	_ = json.Unmarshal(out.Raw, &out.Body)
	return out
}

func (h *harness) do(method, path, token string, body any, hdr ...string) reply {
	h.t.Helper()
	return h.send(h.api, method, path, token, body, hdr...)
}

// signup 注册、验证并登录，返回令牌与用户 id
func (h *harness) signup(name, email, password string) (string, string) {
	h.t.Helper()
	r := h.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": password})
	require.Equal(h.t, http.StatusCreated, r.Code, string(r.Raw))
	uid, _ := r.Body["userId"].(string)

	r = h.do(http.MethodPost, "/api/auth/verify-email", "", gin.H{"email": email, "otp": h.mail.code(email)})
	require.Equal(h.t, http.StatusOK, r.Code, string(r.Raw))

	r = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(h.t, http.StatusOK, r.Code, string(r.Raw))
	token, _ := r.Body["token"].(string)
	require.NotEmpty(h.t, token)
	return token, uid
}

func obj(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	return m
}

func arr(t *testing.T, v any) []any {
	t.Helper()
	a, ok := v.([]any)
	require.True(t, ok, "expected array, got %T", v)
	return a
}

func TestGroupBuyScenario(t *testing.T) {
	h := newHarness(t, "development")

	aliceTok, aliceID := h.signup("Alice", "alice@example.com", "secret1")
	bobTok, bobID := h.signup("Bob", "bob@example.com", "secret2")

	me := h.do(http.MethodGet, "/api/auth/me", aliceTok, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, true, obj(t, me.Body["user"])["isOnline"])

	r := h.do(http.MethodPost, "/api/products", aliceTok, gin.H{
		"title":                 "Bulk Rice 50kg",
		"description":           "Fifty kilos of basmati, split six ways.",
		"price":                 89.5,
		"category":              "Other",
		"estimatedPurchaseDate": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, r.Code, string(r.Raw))
	assert.Equal(t, "Product created successfully", r.Body["message"])
	prod := obj(t, r.Body["product"])
	pid := prod["id"].(string)
	assert.Equal(t, aliceID, obj(t, prod["createdBy"])["id"])
	assert.EqualValues(t, 2, prod["minQuantity"])

	r = h.do(http.MethodGet, "/api/products?sort=newest", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	list := arr(t, r.Body["products"])
	require.Len(t, list, 1)
	assert.Equal(t, pid, obj(t, list[0])["id"])
	assert.EqualValues(t, 1, obj(t, r.Body["pagination"])["totalItems"])

	r = h.do(http.MethodPost, "/api/products/"+pid+"/interest", bobTok, nil)
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	assert.Equal(t, "Interest added", r.Body["message"])
	assert.Equal(t, true, r.Body["isInterested"])
	assert.EqualValues(t, 1, r.Body["interestedCount"])
	prod = obj(t, r.Body["product"])
	assert.EqualValues(t, 1, prod["currentQuantity"])
	require.Len(t, arr(t, prod["interestedUsers"]), 1)

	r = h.do(http.MethodPost, "/api/comments", bobTok, gin.H{"productId": pid, "text": "Count me in"})
	require.Equal(t, http.StatusCreated, r.Code, string(r.Raw))
	bobComment := obj(t, r.Body["comment"])["id"].(string)

	r = h.do(http.MethodPost, "/api/comments", aliceTok, gin.H{"productId": pid, "text": "Welcome!", "parentComment": bobComment})
	require.Equal(t, http.StatusCreated, r.Code, string(r.Raw))
	aliceReply := obj(t, r.Body["comment"])["id"].(string)

	r = h.do(http.MethodGet, "/api/comments/product/"+pid, "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	top := arr(t, r.Body["comments"])
	require.Len(t, top, 1)
	assert.Equal(t, bobComment, obj(t, top[0])["id"])
	replies := arr(t, obj(t, top[0])["replies"])
	require.Len(t, replies, 1)
	assert.Equal(t, aliceReply, obj(t, replies[0])["id"])

	r = h.do(http.MethodDelete, "/api/comments/"+bobComment, bobTok, nil)
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	assert.Equal(t, "Comment deleted successfully", r.Body["message"])

	r = h.do(http.MethodGet, "/api/comments/product/"+pid, "", nil)
	assert.Empty(t, arr(t, r.Body["comments"]))
	r = h.do(http.MethodGet, "/api/comments/user/"+aliceID, "", nil)
	assert.Empty(t, arr(t, r.Body["comments"]))

	r = h.do(http.MethodGet, "/api/users/"+bobID+"/stats", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	stats := obj(t, r.Body["stats"])
	assert.EqualValues(t, 1, stats["totalProductsInterested"])
	assert.EqualValues(t, 0, stats["totalComments"])

	r = h.do(http.MethodPost, "/api/auth/logout", bobTok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	u, err := h.store.Users().FindByID(context.Background(), bobID)
	require.NoError(t, err)
	assert.False(t, u.IsOnline)

	assert.Contains(t, h.touches.seen(), aliceID)
}

func TestLogoutBeatsQueuedActivity(t *testing.T) {
	h := newHarness(t, "development")
	tok, uid := h.signup("Jo", "jo@example.com", "secret1")

	sink := tasks.NewSink(zap.NewNop(), tasks.Options{Workers: 1, QueueSize: 16, Timeout: time.Second})
	sink.Start()
	h.deps.Presence = service.NewPresenceTracker(h.store.Users(), sink, zap.NewNop())
	api := NewAPIEngine(h.deps)

	// 占住唯一的 worker，让活跃刷新在登出之后才执行
	release := make(chan struct{})
	require.True(t, sink.Submit("gate", func(context.Context) error {
		<-release
		return nil
	}))

	r := h.send(api, http.MethodGet, "/api/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	r = h.send(api, http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sink.Stop(ctx))

	u, err := h.store.Users().FindByID(context.Background(), uid)
	require.NoError(t, err)
	assert.False(t, u.IsOnline)
}

// countingUsers 统计 FindByID 次数
type countingUsers struct {
	domain.UserRepository
	mu    sync.Mutex
	finds int
}

func (r *countingUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	r.finds++
	r.mu.Unlock()
	return r.UserRepository.FindByID(ctx, id)
}

func (r *countingUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds
}

func TestProfileReusesGuardUser(t *testing.T) {
	h := newHarness(t, "development")
	tok, uid := h.signup("Kai", "kai@example.com", "secret1")

	users := &countingUsers{UserRepository: h.store.Users()}
	h.deps.Users = users
	h.deps.Auth = service.NewAuthService(service.AuthDeps{
		Users:  users,
		Hasher: auth.NewBcryptHasher(4),
		Tokens: h.deps.JWT,
		Mailer: h.mail,
		Log:    zap.NewNop(),
	})
	h.deps.UserService = service.NewUserService(users, h.store.Products(), h.store.Comments(), nil, 0, nil)
	api := NewAPIEngine(h.deps)

	for _, path := range []string{"/api/auth/me", "/api/users/profile"} {
		before := users.count()
		r := h.send(api, http.MethodGet, path, tok, nil)
		require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
		assert.Equal(t, uid, obj(t, r.Body["user"])["id"], path)
		assert.Equal(t, 1, users.count()-before, path)
	}
}

func TestAuthGuards(t *testing.T) {
	h := newHarness(t, "development")
	tok, uid := h.signup("Carol", "carol@example.com", "secret1")

	r := h.do(http.MethodPost, "/api/products", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "Access denied. No token provided.", r.Body["message"])

	r = h.do(http.MethodGet, "/api/users/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "Token is not valid", r.Body["message"])

	r = h.do(http.MethodGet, "/api/users/profile", tok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "carol@example.com", obj(t, r.Body["user"])["email"])

	require.NoError(t, h.store.Users().SetActive(context.Background(), uid, false, time.Now()))
	r = h.do(http.MethodGet, "/api/users/profile", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "carol@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestOwnershipAndErrors(t *testing.T) {
	h := newHarness(t, "development")
	ctx := context.Background()
	owner, err := testutil.SeedUser(ctx, h.store.Users(), "Dan", "dan@example.com")
	require.NoError(t, err)
	p, err := testutil.SeedProduct(ctx, h.store.Products(), owner.ID, "Olive Oil 20L")
	require.NoError(t, err)
	tok, _ := h.signup("Eve", "eve@example.com", "secret1")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		check  func(t *testing.T, r reply)
	}{
		{
			name: "invalid id", method: http.MethodGet, path: "/api/products/not-an-id", status: http.StatusBadRequest,
			check: func(t *testing.T, r reply) {
				assert.Equal(t, "Invalid ID", r.Body["error"])
				assert.Equal(t, "The provided ID is not valid", r.Body["message"])
			},
		},
		{
			name: "missing product", method: http.MethodGet, path: "/api/products/" + utils.NewID(), status: http.StatusNotFound,
		},
		{
			name: "not owner", method: http.MethodPut, path: "/api/products/" + p.ID, token: tok,
			body: gin.H{"price": 5}, status: http.StatusForbidden,
		},
		{
			name: "not owner delete", method: http.MethodDelete, path: "/api/products/" + p.ID, token: tok, status: http.StatusForbidden,
		},
		{
			name: "register validation", method: http.MethodPost, path: "/api/auth/register",
			body: gin.H{"name": "X", "email": "nope", "password": "123"}, status: http.StatusBadRequest,
			check: func(t *testing.T, r reply) {
				assert.Equal(t, "Validation failed", r.Body["message"])
				fields := map[string]bool{}
				for _, e := range arr(t, r.Body["errors"]) {
					fields[obj(t, e)["field"].(string)] = true
				}
				assert.Equal(t, map[string]bool{"name": true, "email": true, "password": true}, fields)
			},
		},
		{
			name: "bad sort", method: http.MethodGet, path: "/api/products?sort=random", status: http.StatusBadRequest,
		},
		{
			name: "malformed json", method: http.MethodPost, path: "/api/auth/login", body: "{", status: http.StatusBadRequest,
		},
		{
			name: "past purchase date", method: http.MethodPost, path: "/api/products", token: tok, status: http.StatusBadRequest,
			body: gin.H{
				"title": "Late order", "description": "This one is already overdue.", "price": 1,
				"category": "Books", "estimatedPurchaseDate": "2000-01-01",
			},
		},
		{
			name: "comment too long", method: http.MethodPost, path: "/api/comments", token: tok, status: http.StatusBadRequest,
			body: gin.H{"productId": p.ID, "text": string(bytes.Repeat([]byte("a"), domain.MaxCommentLength+1))},
		},
		{
			name: "unknown route", method: http.MethodGet, path: "/api/nothing-here", status: http.StatusNotFound,
			check: func(t *testing.T, r reply) {
				assert.Equal(t, "Route not found", r.Body["error"])
				assert.Equal(t, "The endpoint GET /api/nothing-here does not exist", r.Body["message"])
				assert.NotEmpty(t, arr(t, r.Body["availableEndpoints"]))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r reply
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(s))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				h.api.ServeHTTP(w, req)
				r = reply{Code: w.Code, Raw: w.Body.Bytes()}
				_ = json.Unmarshal(r.Raw, &r.Body)
			} else {
				r = h.do(tt.method, tt.path, tt.token, tt.body)
			}
			assert.Equal(t, tt.status, r.Code, string(r.Raw))
			assert.NotEmpty(t, r.Body["message"], string(r.Raw))
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t, "development")
	h.signup("Fay", "fay@example.com", "secret1")

	r := h.do(http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "fay@example.com"})
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	code := h.mail.code("fay@example.com")

	r = h.do(http.MethodPost, "/api/auth/verify-reset-otp", "", gin.H{"email": "fay@example.com", "otp": code})
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	assert.NotEmpty(t, r.Body["resetToken"])

	r = h.do(http.MethodPost, "/api/auth/reset-password", "", gin.H{"email": "fay@example.com", "otp": code, "newPassword": "brandnew"})
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))

	r = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "fay@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	r = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "fay@example.com", "password": "brandnew"})
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestUserEndpoints(t *testing.T) {
	h := newHarness(t, "development")
	tok, uid := h.signup("Gus", "gus@example.com", "secret1")

	r := h.do(http.MethodPut, "/api/users/profile", tok, gin.H{"name": "Gus Grande"})
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	assert.Equal(t, "Gus Grande", obj(t, r.Body["user"])["name"])

	r = h.do(http.MethodGet, "/api/users/"+uid, "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Gus Grande", obj(t, r.Body["user"])["name"])

	r = h.do(http.MethodGet, "/api/users?search=grande", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, arr(t, r.Body["users"]), 1)

	r = h.do(http.MethodGet, "/api/users/online", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.EqualValues(t, 1, r.Body["count"])

	r = h.do(http.MethodPost, "/api/users/heartbeat", tok, nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, true, r.Body["isOnline"])

	r = h.do(http.MethodGet, "/api/users/"+uid+"/products?status=active", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Empty(t, arr(t, r.Body["products"]))

	r = h.do(http.MethodGet, "/api/users/"+uid+"/products?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestProfileValidation(t *testing.T) {
	h := newHarness(t, "development")
	tok, uid := h.signup("Ivy", "ivy@example.com", "secret1")
	p, err := testutil.SeedProduct(context.Background(), h.store.Products(), uid, "Green tea 5kg")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		body   gin.H
		fields map[string]string
	}{
		{"short name", "/api/users/profile", gin.H{"name": "A"},
			map[string]string{"name": "Name must be at least 2 characters long"}},
		{"empty name", "/api/users/profile", gin.H{"name": ""},
			map[string]string{"name": "Name must be at least 2 characters long"}},
		{"bad email", "/api/users/profile", gin.H{"email": "not-an-email"},
			map[string]string{"email": "Please provide a valid email"}},
		{"relative avatar", "/api/users/profile", gin.H{"avatar": "/img/me.png"},
			map[string]string{"avatar": "Avatar must be a valid URL"}},
		{"ftp avatar", "/api/users/profile", gin.H{"avatar": "ftp://example.com/me.png"},
			map[string]string{"avatar": "Avatar must be a valid URL"}},
		{"all bad", "/api/users/profile", gin.H{"name": "", "email": "x", "avatar": "nope"},
			map[string]string{
				"name":   "Name must be at least 2 characters long",
				"email":  "Please provide a valid email",
				"avatar": "Avatar must be a valid URL",
			}},
		{"product image", "/api/products/" + p.ID, gin.H{"image": "not a url"},
			map[string]string{"image": "Image must be a valid URL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := h.do(http.MethodPut, tt.path, tok, tt.body)
			require.Equal(t, http.StatusBadRequest, r.Code, string(r.Raw))
			assert.Equal(t, "Validation failed", r.Body["message"])
			got := map[string]string{}
			for _, e := range arr(t, r.Body["errors"]) {
				fe := obj(t, e)
				got[fe["field"].(string)] = fe["message"].(string)
			}
			assert.Equal(t, tt.fields, got)
		})
	}

	// 非法输入不落库
	u, err := h.store.Users().FindByEmail(context.Background(), "ivy@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ivy", u.Name)
	assert.Equal(t, domain.DefaultAvatar, u.Avatar)

	r := h.do(http.MethodPut, "/api/users/profile", tok, gin.H{"avatar": "https://cdn.example.com/ivy.png"})
	require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
	assert.Equal(t, "https://cdn.example.com/ivy.png", obj(t, r.Body["user"])["avatar"])
}

func TestOwnerProductsPaging(t *testing.T) {
	h := newHarness(t, "development")
	ctx := context.Background()
	owner, err := testutil.SeedUser(ctx, h.store.Users(), "Lee", "lee@example.com")
	require.NoError(t, err)
	for i := 0; i < domain.MaxLimit+5; i++ {
		_, err := testutil.SeedProduct(ctx, h.store.Products(), owner.ID, fmt.Sprintf("Lot %03d", i))
		require.NoError(t, err)
	}

	tests := []struct {
		query string
		items int
		page  string
	}{
		{"", domain.MaxLimit, "1"},
		{"?page=2", 5, "2"},
		{"?page=3&limit=10", 10, "3"},
		{"?page=9", 0, "9"},
	}
	for _, tt := range tests {
		t.Run("q"+tt.query, func(t *testing.T) {
			r := h.do(http.MethodGet, "/api/products/user/"+owner.ID+tt.query, "", nil)
			require.Equal(t, http.StatusOK, r.Code, string(r.Raw))
			var list []map[string]any
			require.NoError(t, json.Unmarshal(r.Raw, &list))
			assert.Len(t, list, tt.items)
			assert.Equal(t, "105", r.Hdr.Get("X-Total-Count"))
			assert.Equal(t, tt.page, r.Hdr.Get("X-Page"))
		})
	}

	r := h.do(http.MethodGet, "/api/products/user/"+owner.ID+"?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestSystemEndpoints(t *testing.T) {
	h := newHarness(t, "development")

	r := h.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "BulkBuy API Server", r.Body["message"])

	r = h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "OK", r.Body["status"])
	assert.Equal(t, "development", r.Body["environment"])
	assert.NotNil(t, r.Body["memory"])

	r = h.do(http.MethodGet, "/api/db-status", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "connected", r.Body["status"])
	assert.Equal(t, "memory", r.Body["driver"])

	r = h.do(http.MethodGet, "/api/docs", "", nil)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "BulkBuy API Documentation", r.Body["title"])

	assert.NotEmpty(t, r.Hdr.Get("X-Request-ID"))
	assert.Equal(t, "DENY", r.Hdr.Get("X-Frame-Options"))

	h.deps.Store = fakeStore{err: errors.New("connection refused")}
	broken := NewAPIEngine(h.deps)
	r = h.send(broken, http.MethodGet, "/api/db-status", "", nil)
	assert.Equal(t, http.StatusInternalServerError, r.Code)
	assert.Equal(t, "error", r.Body["status"])
}

func TestCORSPolicy(t *testing.T) {
	h := newHarness(t, "production")

	r := h.do(http.MethodGet, "/api/health", "", nil, "Origin", "https://evil.example.org")
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "CORS policy violation", r.Body["error"])
	assert.Equal(t, "https://evil.example.org", r.Body["origin"])

	r = h.do(http.MethodGet, "/api/health", "", nil, "Origin", "https://bulkbuy.example.com")
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "https://bulkbuy.example.com", r.Hdr.Get("Access-Control-Allow-Origin"))

	dev := newHarness(t, "development")
	r = dev.do(http.MethodGet, "/api/health", "", nil, "Origin", "http://anything.local:8080")
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestRegistryOrder(t *testing.T) {
	h := newHarness(t, "development")
	assert.Equal(t, []string{"/auth", "/products", "/comments", "/users"}, APIModules(h.deps).Prefixes())
}
