// Package telemetry sets up OpenTelemetry tracing and metrics for fitlog.
//
// Traces and metrics are exported over OTLP (gRPC by default, or
// http/protobuf). When telemetry is disabled the global no-op providers are
// used, so services can always create tracers and meters:
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("github.com/fyrsmithlabs/fitlog/internal/checkin")
//
// Exporter failures never stop the daemon; the instance is marked degraded
// and Health reports it.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
