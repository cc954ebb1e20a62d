// Package telemetry wires OpenTelemetry tracing through the turn pipeline.
// Components receive a trace.Tracer at construction rather than reading a
// global, so tests can substitute a no-op tracer.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ScopeName is the instrumentation scope for all spans this service creates.
const ScopeName = "github.com/guardchat/orchestrator"

// Attribute keys recorded on pipeline spans.
const (
	AttrSessionID = attribute.Key("chat.session_id")
	AttrModelID   = attribute.Key("chat.model_id")
	AttrRole      = attribute.Key("chat.role")

	AttrDirection = attribute.Key("guardrails.direction")
	AttrFiltered  = attribute.Key("guardrails.filtered")
	AttrDegraded  = attribute.Key("guardrails.degraded")

	AttrInputTokens      = attribute.Key("gen_ai.usage.input_tokens")
	AttrOutputTokens     = attribute.Key("gen_ai.usage.output_tokens")
	AttrTotalTokens      = attribute.Key("gen_ai.usage.total_tokens")
	AttrCacheReadTokens  = attribute.Key("gen_ai.usage.cache_read_tokens")
	AttrCacheWriteTokens = attribute.Key("gen_ai.usage.cache_write_tokens")
)

// NewTracerProvider builds the SDK tracer provider installed by main.
func NewTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider()
}

// NewNoopTracer returns a tracer that records nothing. Tests use it so the
// pipeline runs without a telemetry backend.
func NewNoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(ScopeName)
}

// RecordError marks the span as failed and captures err as a span exception.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
