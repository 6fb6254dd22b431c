package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferLogger builds a Logger that writes redacted JSON to buf.
func newBufferLogger(t *testing.T, cfg *Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
	require.NoError(t, err)
	core, err := buildCore(cfg, enc, zapcore.AddSync(&buf), nil)
	require.NoError(t, err)
	return &Logger{zap: zap.New(core), config: cfg}, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestNewLogger_OTELOnlyWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
}

func TestLogger_LevelMethods(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tests := []struct {
		level zapcore.Level
		log   func(context.Context, string, ...zap.Field)
	}{
		{zapcore.DebugLevel, tl.Debug},
		{zapcore.InfoLevel, tl.Info},
		{zapcore.WarnLevel, tl.Warn},
		{zapcore.ErrorLevel, tl.Error},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			tl.Reset()
			tt.log(ctx, "message at "+tt.level.String())
			tl.AssertLogged(t, tt.level, "message at "+tt.level.String())
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUserID(ctx, "3f2b8c1e-5a4d-4e1b-9c7a-2d6e8f0a1b2c")
	ctx = WithSessionID(ctx, "9b1c2d3e-aaaa-bbbb-cccc-0123456789ab")
	tl.Info(ctx, "checkin created", zap.String("checkin.id", "c1"))

	tl.AssertField(t, "checkin created", "request.id", "req-123")
	tl.AssertField(t, "checkin created", "user.id", "3f2b8c1e-5a4d-4e1b-9c7a-2d6e8f0a1b2c")
	tl.AssertField(t, "checkin created", "session.id", "[REDACTED:36]")
	tl.AssertField(t, "checkin created", "checkin.id", "c1")
	tl.AssertNoSecrets(t)
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tl.Info(ctx, "traced")
	tl.AssertField(t, "traced", "trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	logger, buf := newBufferLogger(t, cfg)

	logger.Info(context.Background(), "login",
		zap.String("username", "alice"),
		zap.String("password", "hunter22"),
		zap.String("detail", "Bearer abc.def"),
		zap.String("password_hash", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
	)
	logger.With(zap.String("cookie", "session=abc")).Info(context.Background(), "child")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "alice", lines[0]["username"])
	assert.Equal(t, "[REDACTED]", lines[0]["password"])
	assert.Equal(t, "[REDACTED:pattern]", lines[0]["detail"])
	assert.Equal(t, "[REDACTED]", lines[0]["password_hash"])
	assert.Equal(t, "[REDACTED]", lines[1]["cookie"])
	assert.NotContains(t, buf.String(), "hunter22")
}

func TestLogger_SamplingKeepsErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sampling.Initial = 1
	cfg.Sampling.Thereafter = 1000
	logger, buf := newBufferLogger(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logger.Info(ctx, "noisy")
		logger.Error(ctx, "failure")
	}

	var infos, errs int
	for _, line := range decodeLines(t, buf) {
		switch line["msg"] {
		case "noisy":
			infos++
		case "failure":
			errs++
		}
	}
	assert.Equal(t, 1, infos)
	assert.Equal(t, 5, errs)
}

func TestLogger_Enabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = zapcore.WarnLevel
	cfg.Sampling.Enabled = false
	logger, _ := newBufferLogger(t, cfg)

	assert.False(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(zapcore.ErrorLevel))
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(appLogging("debug", "console"))
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromAppConfig(appLogging("loud", "json"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "text" }},
		{"no outputs", func(c *Config) { c.Output = OutputConfig{} }},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }},
		{"empty field value", func(c *Config) { c.Fields["env"] = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, NewDefaultConfig().Validate())
}
