// Package telemetry sets up OpenTelemetry tracing and metrics for redactd,
// exporting over OTLP/HTTP.
//
// Domain packages never take a *Telemetry. They call otel.Tracer and
// otel.Meter with their own instrumentation names, and New installs the
// configured providers as the otel globals. With telemetry disabled those
// globals stay no-op.
//
//	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version), logger)
//	defer tel.Shutdown(context.Background())
//
// Exporter failures mark the instance degraded and are logged; they never
// stop the service.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory
// and restores the previous globals on cleanup.
package telemetry
