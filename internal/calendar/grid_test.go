package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fitlog/internal/model"
)

func TestBuild_March2024(t *testing.T) {
	today := model.NewDate(2024, time.March, 15)
	counts := map[model.Date]int{today: 2, model.NewDate(2024, time.March, 1): 1}

	g := Build(2024, time.March, today, counts)

	// March 1 2024 is a Friday, March 31 a Sunday.
	require.Len(t, g.Cells, 42)
	assert.Equal(t, model.NewDate(2024, time.February, 25), g.Cells[0].Date)
	assert.Equal(t, model.NewDate(2024, time.April, 6), g.Cells[41].Date)
	assert.False(t, g.Cells[0].InMonth)

	first := g.Cells[5]
	assert.Equal(t, model.NewDate(2024, time.March, 1), first.Date)
	assert.True(t, first.InMonth)
	assert.Equal(t, 1, first.Count)

	var todays []Cell
	for _, c := range g.Cells {
		if c.IsToday {
			todays = append(todays, c)
		}
	}
	require.Len(t, todays, 1)
	assert.Equal(t, today, todays[0].Date)
	assert.Equal(t, 2, todays[0].Count)
}

func TestBuild_MonthStartingSunday(t *testing.T) {
	// February 2015 starts on a Sunday and has exactly four weeks.
	g := Build(2015, time.February, model.Date{}, nil)
	require.Len(t, g.Cells, 28)
	assert.Equal(t, model.NewDate(2015, time.February, 1), g.Cells[0].Date)
	for _, c := range g.Cells {
		assert.True(t, c.InMonth)
		assert.False(t, c.IsToday)
		assert.Zero(t, c.Count)
	}
}

func TestBuild_GridProperties(t *testing.T) {
	for year := 2023; year <= 2025; year++ {
		for month := time.January; month <= time.December; month++ {
			g := Build(year, month, model.Date{}, nil)

			assert.Zero(t, len(g.Cells)%7, "%d-%02d", year, month)
			assert.Equal(t, time.Sunday, g.Cells[0].Date.Weekday())
			assert.Equal(t, time.Saturday, g.Cells[len(g.Cells)-1].Date.Weekday())

			firstIdx := -1
			inMonth := 0
			for i, c := range g.Cells {
				if c.InMonth {
					inMonth++
					if firstIdx < 0 {
						firstIdx = i
					}
				}
			}
			require.GreaterOrEqual(t, firstIdx, 0)
			first := model.NewDate(year, month, 1)
			assert.Equal(t, first, g.Cells[firstIdx].Date)
			assert.Equal(t, int(first.Weekday()), firstIdx%7)
			assert.Equal(t, model.DaysIn(year, month), inMonth)
		}
	}
}

func TestGrid_Weeks(t *testing.T) {
	g := Build(2024, time.March, model.Date{}, nil)
	weeks := g.Weeks()
	require.Len(t, weeks, 6)
	for _, w := range weeks {
		require.Len(t, w, 7)
		assert.Equal(t, time.Sunday, w[0].Date.Weekday())
	}
}

func TestCounts(t *testing.T) {
	day := model.NewDate(2024, time.March, 15)
	counts := Counts([]*model.CheckinRecord{{Date: day}, {Date: day}, {Date: day.AddDays(1)}})
	assert.Equal(t, 2, counts[day])
	assert.Equal(t, 1, counts[day.AddDays(1)])
}
