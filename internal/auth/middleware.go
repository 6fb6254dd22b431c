package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/logging"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

// contextKey is the type for echo context keys set by this package.
type contextKey string

const (
	sessionKey   contextKey = "fitlog_session"
	sessionIDKey contextKey = "fitlog_session_id"
)

// RequireSession returns middleware that resolves the session cookie and
// rejects the request with 401 when there is no live session.
//
// On success the session is available through SessionFromContext and the
// user and session ids are attached to the request context for logging.
func RequireSession(svc Service, cookieName string, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return unauthorized(c)
			}

			req := c.Request()
			sess, err := svc.ResolveSession(req.Context(), cookie.Value)
			if errors.Is(err, ErrNoSession) {
				return unauthorized(c)
			}
			if err != nil {
				logger.Error("session lookup failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			}

			ctx := logging.WithUserID(req.Context(), sess.UserID)
			ctx = logging.WithSessionID(ctx, cookie.Value)
			c.SetRequest(req.WithContext(ctx))

			c.Set(string(sessionKey), sess)
			c.Set(string(sessionIDKey), cookie.Value)
			return next(c)
		}
	}
}

// SessionFromContext returns the session resolved by RequireSession.
func SessionFromContext(c echo.Context) (*model.Session, bool) {
	sess, ok := c.Get(string(sessionKey)).(*model.Session)
	return sess, ok && sess != nil
}

// SessionIDFromContext returns the session id resolved by RequireSession.
func SessionIDFromContext(c echo.Context) string {
	id, _ := c.Get(string(sessionIDKey)).(string)
	return id
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}
