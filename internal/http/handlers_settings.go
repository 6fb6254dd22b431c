package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// UpdateSettingsRequest is the body for POST /api/settings.
type UpdateSettingsRequest struct {
	ExerciseTypes []string `json:"exerciseTypes"`
	WeeklyGoal    int      `json:"weeklyGoal"`
}

func (s *Server) handleGetSettings(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	settings, err := s.services.Settings.Get(c.Request().Context(), sess.UserID)
	if err != nil {
		return internalError("Failed to get settings", err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}

	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.services.Settings.Update(c.Request().Context(), sess.UserID, req.ExerciseTypes, req.WeeklyGoal); err != nil {
		return internalError("Failed to update settings", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
