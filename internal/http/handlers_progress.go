package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/fitlog/internal/calendar"
	"github.com/fyrsmithlabs/fitlog/internal/model"
	"github.com/fyrsmithlabs/fitlog/internal/progress"
)

// ProgressResponse is the body for GET /api/progress.
type ProgressResponse struct {
	Year       int              `json:"year"`
	Month      time.Month       `json:"month"`
	WeeklyGoal int              `json:"weeklyGoal"`
	Progress   progress.Summary `json:"progress"`
}

// CalendarResponse is the body for GET /api/calendar.
type CalendarResponse struct {
	calendar.Grid
	WeeklyGoal int              `json:"weeklyGoal"`
	Progress   progress.Summary `json:"progress"`
}

type monthView struct {
	year    int
	month   time.Month
	today   model.Date
	goal    int
	records []*model.CheckinRecord
	summary progress.Summary
}

// loadMonthView gathers what both the progress and calendar views need.
func (s *Server) loadMonthView(ctx context.Context, userID string, year int, month time.Month) (*monthView, error) {
	settings, err := s.services.Settings.Get(ctx, userID)
	if err != nil {
		return nil, internalError("Failed to get settings", err)
	}
	records, err := s.services.Checkins.ListByMonth(ctx, userID, year, month)
	if err != nil {
		return nil, internalError("Failed to get checkins", err)
	}

	today := s.today()
	week, err := s.weekDates(ctx, userID, today, year, month, records)
	if err != nil {
		return nil, internalError("Failed to get checkins", err)
	}

	monthDates := progress.DatesOf(records)
	return &monthView{
		year:    year,
		month:   month,
		today:   today,
		goal:    settings.WeeklyGoal,
		records: records,
		summary: s.services.Progress.Summarize(week, monthDates, settings.WeeklyGoal, today, year, month),
	}, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// weekDates returns check-in dates for the months touched by today's week,
// reusing loaded for the month already fetched.
func (s *Server) weekDates(ctx context.Context, userID string, today model.Date, year int, month time.Month, loaded []*model.CheckinRecord) ([]model.Date, error) {
	start := progress.WeekStart(today)

	months := []yearMonth{{start.Year, start.Month}}
	if end := (yearMonth{today.Year, today.Month}); end != months[0] {
		months = append(months, end)
	}

	var dates []model.Date
	for _, ym := range months {
		if ym == (yearMonth{year, month}) {
			dates = append(dates, progress.DatesOf(loaded)...)
			continue
		}
		records, err := s.services.Checkins.ListByMonth(ctx, userID, ym.year, ym.month)
		if err != nil {
			return nil, err
		}
		dates = append(dates, progress.DatesOf(records)...)
	}
	return dates, nil
}

func (s *Server) handleProgress(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	year, month, err := s.monthParams(c)
	if err != nil {
		return err
	}

	view, err := s.loadMonthView(c.Request().Context(), sess.UserID, year, month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProgressResponse{
		Year:       year,
		Month:      month,
		WeeklyGoal: view.goal,
		Progress:   view.summary,
	})
}

func (s *Server) handleCalendar(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	year, month, err := s.monthParams(c)
	if err != nil {
		return err
	}

	view, err := s.loadMonthView(c.Request().Context(), sess.UserID, year, month)
	if err != nil {
		return err
	}

	grid := calendar.Build(year, month, view.today, calendar.Counts(view.records))
	return c.JSON(http.StatusOK, CalendarResponse{
		Grid:       grid,
		WeeklyGoal: view.goal,
		Progress:   view.summary,
	})
}
