package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	s := NewMemory(WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "session:abc", []byte(`{"userId":"u1"}`)))

	now = now.Add(59 * time.Minute)
	_, err := s.Get(ctx, "session:abc")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "session:abc")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := s.Keys(ctx, "session:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	value := []byte(`{"a":1}`)
	require.NoError(t, s.Put(ctx, "k", value))

	value[2] = 'b'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[3] = 'c'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(again))
}
