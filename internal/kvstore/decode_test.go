package kvstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *testRecord) Validate() error {
	if r.ID == "" {
		return errors.New("missing id")
	}
	return nil
}

func TestDecode_AcceptsBothRepresentations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"object", `{"id":"r1","name":"run"}`},
		{"string containing object", `"{\"id\":\"r1\",\"name\":\"run\"}"`},
		{"surrounding whitespace", "  {\"id\":\"r1\",\"name\":\"run\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Decode[testRecord]("checkin:r1", []byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, &testRecord{ID: "r1", Name: "run"}, rec)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `nope`},
		{"array", `["a"]`},
		{"string with non-object", `"hello"`},
		{"truncated", `{"id":`},
		{"fails validation", `{"name":"run"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[testRecord]("checkin:r1", []byte(tt.raw))
			require.Error(t, err)

			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, "checkin:r1", decErr.Key)
		})
	}
}

func TestEncodeKey_RoundTrip(t *testing.T) {
	keys := []string{
		"user:alice",
		"user:张伟",
		"user:bob.smith",
		"user:with space",
		"user:",
		"user:id:3f2b8c1e-5a4d-4e1b-9c7a-2d6e8f0a1b2c",
		"date_checkins:u1:2024-03-15",
		"weird:=start",
	}
	for _, k := range keys {
		t.Run(k, func(t *testing.T) {
			enc := EncodeKey(k)
			assert.Regexp(t, `^[-/_=.a-zA-Z0-9]+$`, enc)
			assert.NotContains(t, enc, "..")

			dec, err := DecodeKey(enc)
			require.NoError(t, err)
			assert.Equal(t, k, dec)
		})
	}
}

func TestEncodeKey_PlainSegmentsUnchanged(t *testing.T) {
	assert.Equal(t, "checkin.c1", EncodeKey("checkin:c1"))
	assert.Equal(t, "date_checkins.u1.2024-03-15", EncodeKey("date_checkins:u1:2024-03-15"))
}

func TestDecodeKey_Invalid(t *testing.T) {
	_, err := DecodeKey("user.=***")
	assert.Error(t, err)
}
