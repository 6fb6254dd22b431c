// Package calendar builds month-view grids.
package calendar

import (
	"time"

	"github.com/fyrsmithlabs/fitlog/internal/model"
)

// Cell is one day in the grid.
type Cell struct {
	Date    model.Date `json:"date"`
	InMonth bool       `json:"inMonth"`
	IsToday bool       `json:"isToday"`
	Count   int        `json:"count"`
}

// Grid is a month view running from the Sunday on or before the 1st through
// the Saturday on or after the last day. len(Cells) is a multiple of 7.
type Grid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []Cell     `json:"cells"`
}

// Build lays out the grid for year/month. counts maps a date to its number
// of check-ins; dates absent from counts get zero.
func Build(year int, month time.Month, today model.Date, counts map[model.Date]int) Grid {
	first := model.NewDate(year, month, 1)
	last := model.NewDate(year, month, model.DaysIn(year, month))

	start := first.AddDays(-int(first.Weekday() - time.Sunday))
	end := last.AddDays(int(time.Saturday - last.Weekday()))

	g := Grid{Year: year, Month: month}
	for d := start; !d.After(end); d = d.AddDays(1) {
		g.Cells = append(g.Cells, Cell{
			Date:    d,
			InMonth: d.InMonth(year, month),
			IsToday: d == today,
			Count:   counts[d],
		})
	}
	return g
}

// Weeks splits the grid into rows of seven cells.
func (g Grid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(g.Cells)/7)
	for i := 0; i+7 <= len(g.Cells); i += 7 {
		weeks = append(weeks, g.Cells[i:i+7])
	}
	return weeks
}

// Counts tallies check-ins per date.
func Counts(records []*model.CheckinRecord) map[model.Date]int {
	counts := make(map[model.Date]int, len(records))
	for _, r := range records {
		counts[r.Date]++
	}
	return counts
}
