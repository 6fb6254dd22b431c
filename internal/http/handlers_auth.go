package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/auth"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

// CredentialsRequest is the body for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// MeResponse is the body for GET /api/auth/me.
type MeResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func bindCredentials(c echo.Context) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "用户名和密码不能为空")
	}
	return &req, nil
}

func (s *Server) handleRegister(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := s.services.Auth.Register(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, "用户名至少3位，密码至少6位，用户名不能包含空格或冒号")
	case errors.Is(err, auth.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, "用户名已存在")
	case err != nil:
		return internalError("注册失败", err)
	}

	if err := s.startSession(c, user); err != nil {
		return internalError("注册失败", err)
	}
	return c.JSON(http.StatusCreated, SuccessResponse{Success: true})
}

func (s *Server) handleLogin(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := s.services.Auth.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Info("login rejected", zap.String("client_ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "用户名或密码错误")
	}
	if err != nil {
		return internalError("登录失败", err)
	}

	if err := s.startSession(c, user); err != nil {
		return internalError("登录失败", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) startSession(c echo.Context, user *model.User) error {
	id, _, err := s.services.Auth.CreateSession(c.Request().Context(), user)
	if err != nil {
		return err
	}
	c.SetCookie(auth.SessionCookie(s.config.Cookie, id))
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(s.config.Cookie.Name); err == nil && cookie.Value != "" {
		if err := s.services.Auth.DeleteSession(c.Request().Context(), cookie.Value); err != nil {
			s.logger.Warn("failed to delete session on logout", zap.Error(err))
		}
	}
	c.SetCookie(auth.ClearCookie(s.config.Cookie))
	return c.Redirect(http.StatusSeeOther, s.config.LogoutRedirect)
}

func (s *Server) handleMe(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return c.JSON(http.StatusOK, MeResponse{UserID: sess.UserID, Username: sess.Username})
}
