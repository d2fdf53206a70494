package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"bulkbuy-api/internal/transport/http/ez"
)

type sessionLog struct {
	events []string
}

func (s *sessionLog) Touch(uid string)                  { s.events = append(s.events, "touch:"+uid) }
func (s *sessionLog) End(_ context.Context, uid string) { s.events = append(s.events, "end:"+uid) }
func (s *sessionLog) mark(ev string) gin.HandlerFunc    { return func(*gin.Context) { s.events = append(s.events, ev) } }

func TestTrackActivity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := &sessionLog{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(ez.KeyUserID, uid)
		}
	}, TrackActivity(log))
	r.GET("/work", log.mark("handler"))
	r.POST("/logout", func(c *gin.Context) {
		ez.EndSession(c)
		log.events = append(log.events, "logout")
	})

	call := func(method, path, uid string) {
		req := httptest.NewRequest(method, path, nil)
		if uid != "" {
			req.Header.Set("X-Test-User", uid)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	call(http.MethodGet, "/work", "u1")
	call(http.MethodGet, "/work", "")
	call(http.MethodPost, "/logout", "u1")

	assert.Equal(t, []string{
		"handler", "touch:u1",
		"handler",
		"logout", "end:u1",
	}, log.events)
}
