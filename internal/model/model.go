package model

import (
	"errors"
	"time"
)

// User is an account. It is never updated after registration.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) Validate() error {
	if u.ID == "" || u.Username == "" || u.PasswordHash == "" {
		return errors.New("user record missing id, username or passwordHash")
	}
	return nil
}

// CheckinRecord is one logged exercise session.
type CheckinRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Date         Date      `json:"date"`
	ExerciseType string    `json:"exerciseType"`
	Duration     int       `json:"duration"` // minutes
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (c *CheckinRecord) Validate() error {
	switch {
	case c.ID == "":
		return errors.New("checkin missing id")
	case c.UserID == "":
		return errors.New("checkin missing userId")
	case c.Date.IsZero():
		return errors.New("checkin missing date")
	case c.ExerciseType == "":
		return errors.New("checkin missing exerciseType")
	case c.Duration <= 0:
		return errors.New("checkin duration must be positive")
	}
	return nil
}

// UserSettings are a user's preferences. Updates replace the whole record.
type UserSettings struct {
	UserID        string   `json:"userId"`
	ExerciseTypes []string `json:"exerciseTypes"`
	WeeklyGoal    int      `json:"weeklyGoal"`
}

// Session is the server side of a login.
type Session struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) Validate() error {
	if s.UserID == "" {
		return errors.New("session missing userId")
	}
	return nil
}

// Expired reports whether the session has passed its expiry. Sessions
// without an expiry rely on the store TTL alone.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
