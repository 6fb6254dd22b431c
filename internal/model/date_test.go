package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 15}, d)
	assert.Equal(t, "2024-03-15", d.String())
	assert.Equal(t, time.Friday, d.Weekday())

	for _, bad := range []string{"", "2024-3-15", "2024-02-30", "15/03/2024", "2024-03-15T10:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2024-01-31", NewDate(2024, time.March, 0).AddDays(-29).String())

	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, 0, d.Compare(NewDate(2024, 2, 28)))
	assert.True(t, d.InMonth(2024, time.February))
	assert.False(t, d.InMonth(2023, time.February))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
	assert.Equal(t, 30, DaysIn(2024, time.April))
}

func TestDate_JSON(t *testing.T) {
	rec := CheckinRecord{ID: "c1", UserID: "u1", Date: NewDate(2024, time.March, 5), ExerciseType: "跑步", Duration: 30}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"date":"2024-03-05"`)
	assert.NotContains(t, string(b), "note")

	var back CheckinRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rec.Date, back.Date)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"March 5"}`), &back))
}

func TestCheckinRecord_Validate(t *testing.T) {
	valid := CheckinRecord{ID: "c1", UserID: "u1", Date: NewDate(2024, 3, 15), ExerciseType: "瑜伽", Duration: 45}
	assert.NoError(t, valid.Validate())

	tests := map[string]func(*CheckinRecord){
		"no id":       func(c *CheckinRecord) { c.ID = "" },
		"no user":     func(c *CheckinRecord) { c.UserID = "" },
		"no date":     func(c *CheckinRecord) { c.Date = Date{} },
		"no type":     func(c *CheckinRecord) { c.ExerciseType = "" },
		"no duration": func(c *CheckinRecord) { c.Duration = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			rec := valid
			mutate(&rec)
			assert.Error(t, rec.Validate())
		})
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.False(t, (&Session{UserID: "u1"}).Expired(now))
	assert.False(t, (&Session{UserID: "u1", ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&Session{UserID: "u1", ExpiresAt: now}).Expired(now))
}
