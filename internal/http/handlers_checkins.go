package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/fitlog/internal/auth"
	"github.com/fyrsmithlabs/fitlog/internal/checkin"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

// CreateCheckinRequest is the body for POST /api/checkins.
type CreateCheckinRequest struct {
	Date         string `json:"date"`
	ExerciseType string `json:"exerciseType"`
	Duration     int    `json:"duration"`
	Note         string `json:"note,omitempty"`
}

// CheckinResponse wraps a single check-in.
type CheckinResponse struct {
	Checkin *model.CheckinRecord `json:"checkin"`
}

// CheckinsResponse wraps a list of check-ins.
type CheckinsResponse struct {
	Checkins []*model.CheckinRecord `json:"checkins"`
}

// session returns the session set by auth.RequireSession.
func session(c echo.Context) (*model.Session, error) {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return sess, nil
}

func (s *Server) today() model.Date {
	return model.DateOf(s.config.Now())
}

// monthParams reads ?year&month, defaulting to the current month.
func (s *Server) monthParams(c echo.Context) (int, time.Month, error) {
	today := s.today()
	year, month := today.Year, today.Month

	if v := c.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		year = y
	}
	if v := c.QueryParam("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid month")
		}
		month = time.Month(m)
	}
	return year, month, nil
}

func (s *Server) handleListCheckins(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var records []*model.CheckinRecord
	if v := c.QueryParam("date"); v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		records, err = s.services.Checkins.ListByDate(ctx, sess.UserID, date)
		if err != nil {
			return internalError("Failed to get checkins", err)
		}
	} else {
		year, month, err := s.monthParams(c)
		if err != nil {
			return err
		}
		records, err = s.services.Checkins.ListByMonth(ctx, sess.UserID, year, month)
		if err != nil {
			return internalError("Failed to get checkins", err)
		}
	}

	if records == nil {
		records = []*model.CheckinRecord{}
	}
	return c.JSON(http.StatusOK, CheckinsResponse{Checkins: records})
}

func (s *Server) handleCreateCheckin(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}

	var req CreateCheckinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Date == "" || req.ExerciseType == "" || req.Duration == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields")
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}

	record, err := s.services.Checkins.Create(c.Request().Context(), &checkin.CreateRequest{
		UserID:       sess.UserID,
		Date:         date,
		ExerciseType: req.ExerciseType,
		Duration:     req.Duration,
		Note:         req.Note,
	})
	if errors.Is(err, checkin.ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid checkin")
	}
	if err != nil {
		return internalError("Failed to create checkin", err)
	}
	return c.JSON(http.StatusOK, CheckinResponse{Checkin: record})
}

func (s *Server) handleDeleteCheckin(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	if err := s.services.Checkins.Delete(c.Request().Context(), c.Param("id"), sess.UserID); err != nil {
		return internalError("Failed to delete checkin", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
