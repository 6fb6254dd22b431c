package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/logging"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleError writes {error} bodies. HTTP errors keep their message;
// anything else is logged and reported as a generic 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
		if he.Internal != nil && status >= http.StatusInternalServerError {
			s.logError(c, he.Internal)
		}
	} else {
		s.logError(c, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}

func (s *Server) logError(c echo.Context, err error) {
	fields := append(logging.ContextFields(c.Request().Context()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	s.logger.Error("request failed", fields...)
}

// internalError wraps err as a 500 with a caller-facing message.
func internalError(msg string, err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, msg).SetInternal(err)
}
