// Package http provides the fitlog HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/auth"
	"github.com/fyrsmithlabs/fitlog/internal/checkin"
	"github.com/fyrsmithlabs/fitlog/internal/logging"
	"github.com/fyrsmithlabs/fitlog/internal/progress"
	"github.com/fyrsmithlabs/fitlog/internal/settings"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping() error
}

// Services bundles the domain services behind the API.
type Services struct {
	Auth     auth.Service
	Checkins checkin.Service
	Settings settings.Service
	Progress *progress.Calculator
	Store    Pinger // optional
}

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	Cookie         auth.CookieConfig
	LogoutRedirect string
	LoginRate      float64
	LoginBurst     int

	// Now overrides time.Now for "today" and default months.
	Now func() time.Time
}

// DefaultConfig returns a config for local use.
func DefaultConfig() *Config {
	return &Config{
		Host: "localhost",
		Port: 8080,
		Cookie: auth.CookieConfig{
			Name:   "session",
			MaxAge: 30 * 24 * time.Hour,
		},
		LogoutRedirect: "/login",
		LoginRate:      1,
		LoginBurst:     5,
	}
}

// Server provides HTTP endpoints for fitlog.
type Server struct {
	echo     *echo.Echo
	services Services
	logger   *zap.Logger
	config   *Config
	limiter  *auth.LoginLimiter
	metrics  *HTTPMetrics
}

// NewServer creates a new HTTP server.
func NewServer(services Services, logger *zap.Logger, cfg *Config) (*Server, error) {
	if services.Auth == nil || services.Checkins == nil || services.Settings == nil {
		return nil, errors.New("auth, checkin and settings services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if services.Progress == nil {
		services.Progress = &progress.Calculator{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		services: services,
		logger:   logger,
		config:   cfg,
		limiter:  auth.NewLoginLimiter(cfg.LoginRate, cfg.LoginBurst),
		metrics:  NewHTTPMetrics(logger),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContext)
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(s.requestLogger)

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin, s.limiter.Middleware())
	authGroup.GET("/logout", s.handleLogout)

	protected := api.Group("", auth.RequireSession(s.services.Auth, s.config.Cookie.Name, s.logger))
	protected.GET("/auth/me", s.handleMe)

	protected.GET("/checkins", s.handleListCheckins)
	protected.POST("/checkins", s.handleCreateCheckin)
	protected.DELETE("/checkins/:id", s.handleDeleteCheckin)

	protected.GET("/settings", s.handleGetSettings)
	protected.POST("/settings", s.handleUpdateSettings)

	protected.GET("/progress", s.handleProgress)
	protected.GET("/calendar", s.handleCalendar)
}

// requestContext copies the request id into the request context for logging.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		if rid != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), rid)))
		}
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		fields := append(logging.ContextFields(c.Request().Context()),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		s.logger.Info("http request", fields...)
		return nil
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.services.Store != nil {
		if err := s.services.Store.Ping(); err != nil {
			s.logger.Warn("store health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
