package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:alice", User("alice"))
	assert.Equal(t, "user:id:u1", UserByID("u1"))
	assert.Equal(t, "session:s1", Session("s1"))
	assert.Equal(t, "checkin:c1", Checkin("c1"))
	assert.Equal(t, "user_checkins:u1", UserCheckins("u1"))
	assert.Equal(t, "date_checkins:u1:2024-03-15", DateCheckins("u1", "2024-03-15"))
	assert.Equal(t, "settings:u1", Settings("u1"))
}

func TestParse(t *testing.T) {
	id, ok := CheckinID("checkin:c1")
	assert.True(t, ok)
	assert.Equal(t, "c1", id)

	_, ok = CheckinID("checkin:")
	assert.False(t, ok)

	uid, ok := ParseUserCheckins("user_checkins:u1")
	assert.True(t, ok)
	assert.Equal(t, "u1", uid)

	uid, date, ok := ParseDateCheckins(DateCheckins("u1", "2024-03-15"))
	assert.True(t, ok)
	assert.Equal(t, "u1", uid)
	assert.Equal(t, "2024-03-15", date)

	for _, bad := range []string{"date_checkins:", "date_checkins:u1", "date_checkins:u1:", "checkin:c1"} {
		_, _, ok := ParseDateCheckins(bad)
		assert.False(t, ok, bad)
	}
}
