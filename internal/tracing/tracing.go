// Package tracing wraps the OpenTelemetry tracer provider lookup so handlers
// do not depend on how the provider is configured. When no SDK is installed
// (unit tests, local runs) the global provider is a no-op.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}
