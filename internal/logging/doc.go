// Package logging provides structured logging for fitlog.
//
// Logging wraps Zap with:
//   - Dual output (stdout + OpenTelemetry log bridge)
//   - Context field injection (trace_id, request.id, user.id, session.id)
//   - Secret redaction by field name and value pattern
//   - Level-aware sampling (errors never sampled)
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRequestID(ctx, reqID)
//	ctx = logging.WithUserID(ctx, user.ID)
//	logger.Info(ctx, "checkin created", zap.String("checkin.id", rec.ID))
//
// Session ids are always redacted; only their length is written.
//
// Use TestLogger for assertions in tests:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message")
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertNoSecrets(t)
package logging
