// Package progress computes weekly and monthly check-in percentages.
//
// The weekly window is the calendar week: from the Sunday on or before
// today through today. It restarts every Sunday rather than rolling over
// the last seven days.
package progress

import (
	"fmt"
	"math"
	"time"

	"github.com/fyrsmithlabs/fitlog/internal/model"
)

// Mode selects what is counted.
type Mode int

const (
	// CountCheckins counts every check-in record.
	CountCheckins Mode = iota
	// CountDays counts distinct days with at least one check-in.
	CountDays
)

func (m Mode) String() string {
	if m == CountDays {
		return "days"
	}
	return "checkins"
}

// ParseMode parses "checkins" or "days". Empty means CountCheckins.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "checkins":
		return CountCheckins, nil
	case "days":
		return CountDays, nil
	}
	return CountCheckins, fmt.Errorf("unknown progress mode %q", s)
}

// Percent is a count measured against a denominator.
type Percent struct {
	Count       int     `json:"count"`
	Denominator int     `json:"denominator"`
	Raw         float64 `json:"raw"`     // unclamped
	Display     float64 `json:"display"` // clamped to [0, 100]
}

// Rounded returns Display rounded to a whole percent.
func (p Percent) Rounded() int {
	return int(math.Round(p.Display))
}

func newPercent(count, denominator int) Percent {
	p := Percent{Count: count, Denominator: denominator}
	switch {
	case denominator > 0:
		p.Raw = 100 * float64(count) / float64(denominator)
	case count > 0:
		p.Raw = 100
	}
	p.Display = math.Min(100, math.Max(0, p.Raw))
	return p
}

// WeekStart returns the Sunday on or before d.
func WeekStart(d model.Date) model.Date {
	return d.AddDays(-int(d.Weekday() - time.Sunday))
}

// Weekly measures check-ins from the start of today's week through today
// against goal.
func Weekly(dates []model.Date, goal int, today model.Date, mode Mode) Percent {
	start := WeekStart(today)
	return newPercent(count(dates, mode, func(d model.Date) bool {
		return !d.Before(start) && !d.After(today)
	}), goal)
}

// Monthly measures check-ins in the month against the number of days in it.
func Monthly(dates []model.Date, year int, month time.Month, mode Mode) Percent {
	return newPercent(count(dates, mode, func(d model.Date) bool {
		return d.InMonth(year, month)
	}), model.DaysIn(year, month))
}

func count(dates []model.Date, mode Mode, keep func(model.Date) bool) int {
	seen := make(map[model.Date]struct{})
	n := 0
	for _, d := range dates {
		if !keep(d) {
			continue
		}
		if mode == CountDays {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
		}
		n++
	}
	return n
}

// Summary is the weekly and monthly progress for one view.
type Summary struct {
	Weekly  Percent `json:"weekly"`
	Monthly Percent `json:"monthly"`
}

// Calculator applies configured counting modes.
type Calculator struct {
	WeeklyMode  Mode
	MonthlyMode Mode
}

// NewCalculator parses the configured modes.
func NewCalculator(weeklyMode, monthlyMode string) (*Calculator, error) {
	w, err := ParseMode(weeklyMode)
	if err != nil {
		return nil, fmt.Errorf("weekly: %w", err)
	}
	m, err := ParseMode(monthlyMode)
	if err != nil {
		return nil, fmt.Errorf("monthly: %w", err)
	}
	return &Calculator{WeeklyMode: w, MonthlyMode: m}, nil
}

// Summarize computes both percentages for a month view. weekDates should
// cover today's week, which may start in the previous month.
func (c *Calculator) Summarize(weekDates, monthDates []model.Date, goal int, today model.Date, year int, month time.Month) Summary {
	return Summary{
		Weekly:  Weekly(weekDates, goal, today, c.WeeklyMode),
		Monthly: Monthly(monthDates, year, month, c.MonthlyMode),
	}
}

// DatesOf extracts the dates of records.
func DatesOf(records []*model.CheckinRecord) []model.Date {
	dates := make([]model.Date, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.Date)
	}
	return dates
}
