// Package keyspace defines where fitlog records live in the key-value store.
package keyspace

import "strings"

const (
	CheckinPrefix      = "checkin:"
	UserCheckinsPrefix = "user_checkins:"
	DateCheckinsPrefix = "date_checkins:"
)

// User is the by-username user record.
func User(username string) string { return "user:" + username }

// UserByID is the by-id copy of the user record.
func UserByID(id string) string { return "user:id:" + id }

// Session holds a session record; it lives in the session store.
func Session(sessionID string) string { return "session:" + sessionID }

// Checkin is the primary check-in record.
func Checkin(id string) string { return CheckinPrefix + id }

// UserCheckins is the set of every check-in id owned by a user.
func UserCheckins(userID string) string { return UserCheckinsPrefix + userID }

// DateCheckins is the set of a user's check-in ids for one day.
func DateCheckins(userID, date string) string {
	return DateCheckinsPrefix + userID + ":" + date
}

// Settings is a user's settings record.
func Settings(userID string) string { return "settings:" + userID }

// CheckinID extracts the id from a Checkin key.
func CheckinID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, CheckinPrefix)
	return id, ok && id != ""
}

// ParseUserCheckins extracts the user id from a UserCheckins key.
func ParseUserCheckins(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, UserCheckinsPrefix)
	return id, ok && id != ""
}

// ParseDateCheckins splits a DateCheckins key into user id and date.
func ParseDateCheckins(key string) (userID, date string, ok bool) {
	rest, ok := strings.CutPrefix(key, DateCheckinsPrefix)
	if !ok {
		return "", "", false
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
