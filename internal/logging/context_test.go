package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/fitlog/internal/config"
	"github.com/stretchr/testify/assert"
)

func appLogging(level, format string) config.LoggingConfig {
	return config.LoggingConfig{Level: level, Format: format}
}

func TestContextIDs_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "user_1")
	ctx = WithSessionID(ctx, "sess-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "user_1", UserIDFromContext(ctx))
	assert.Equal(t, "sess-1", SessionIDFromContext(ctx))
}

func TestContextIDs_InvalidIgnored(t *testing.T) {
	tests := []string{"", "has space", "semi;colon", strings.Repeat("a", maxIDLen+1)}
	for _, id := range tests {
		ctx := WithRequestID(context.Background(), id)
		assert.Empty(t, RequestIDFromContext(ctx), "id %q", id)
	}
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "from context")
	tl.AssertLogged(t, 0, "from context")
}
