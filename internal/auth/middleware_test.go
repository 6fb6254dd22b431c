package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fitlog/internal/logging"
)

func protectedEcho(svc Service) *echo.Echo {
	e := echo.New()
	g := e.Group("", RequireSession(svc, "session", nil))
	g.GET("/whoami", func(c echo.Context) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, map[string]string{
			"userId":    sess.UserID,
			"sessionId": SessionIDFromContext(c),
			"logUserId": logging.UserIDFromContext(c.Request().Context()),
		})
	})
	return e
}

func TestRequireSession(t *testing.T) {
	f := newFixture(t)
	user, err := f.svc.Register(context.Background(), "alice", "password1")
	require.NoError(t, err)
	id, _, err := f.svc.CreateSession(context.Background(), user)
	require.NoError(t, err)

	e := protectedEcho(f.svc)

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: id})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"userId":"`+user.ID+`"`)
		assert.Contains(t, rec.Body.String(), `"sessionId":"`+id+`"`)
		assert.Contains(t, rec.Body.String(), `"logUserId":"`+user.ID+`"`)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("unknown session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "11111111-1111-4111-8111-111111111111"})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCookies(t *testing.T) {
	cfg := CookieConfig{Name: "session", Secure: true, MaxAge: 30 * 24 * time.Hour}

	c := SessionCookie(cfg, "abc")
	assert.Equal(t, "session", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, 30*24*60*60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	cleared := ClearCookie(cfg)
	assert.Equal(t, "session", cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}
