// Package observability configures OpenTelemetry tracing for humanizer and
// offers small helpers to start spans around model calls.
//
// Tracing is always installed. Without an OTLP endpoint the tracer provider
// records spans in process and exports nothing, so instrumented code never
// needs to check whether telemetry is enabled.
package observability
