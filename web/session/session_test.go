package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookshelf-app/bookshelf/database/model"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(CookieName, cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))
	r.GET("/login", func(c *gin.Context) {
		_ = SetLoginUser(c, &model.User{Id: 7, Email: "reader@example.com", Password: "hash"})
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		user := GetLoginUser(c)
		if user == nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.String(http.StatusOK, user.Email)
	})
	r.GET("/logout", func(c *gin.Context) {
		_ = ClearSession(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestLoginRoundTrip(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reader@example.com", w.Body.String())
}

func TestClearSession(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}
