package trace

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// SpanContext is the wire form of an otel span context carried inside event messages
type SpanContext struct {
	TraceID    [16]byte `json:"trace_id"`
	SpanID     [8]byte  `json:"span_id"`
	TraceFlags byte     `json:"trace_flags"`
	TraceState string   `json:"trace_state"`
	Remote     bool     `json:"remote"`
}

// ParseSpanContext rebuilds the otel span context from its wire form
func ParseSpanContext(sc SpanContext) (trace.SpanContext, error) {
	traceState, err := trace.ParseTraceState(sc.TraceState)
	if err != nil {
		return trace.SpanContext{}, err
	}
	config := trace.SpanContextConfig{
		TraceID:    sc.TraceID,
		SpanID:     sc.SpanID,
		TraceFlags: trace.TraceFlags(sc.TraceFlags),
		TraceState: traceState,
		Remote:     sc.Remote,
	}
	return trace.NewSpanContext(config), nil
}

// BuildSpanContext converts sc to its wire form
func BuildSpanContext(sc trace.SpanContext) SpanContext {
	return SpanContext{
		TraceID:    sc.TraceID(),
		SpanID:     sc.SpanID(),
		TraceFlags: byte(sc.TraceFlags()),
		TraceState: sc.TraceState().String(),
		Remote:     sc.IsRemote(),
	}
}

// FromContext captures the span context of the current request
func FromContext(ctx context.Context) SpanContext {
	return BuildSpanContext(trace.SpanContextFromContext(ctx))
}

// WithRemoteParent returns ctx carrying sc as its remote parent span.
// Invalid span contexts (e.g. events published outside a traced request) leave ctx untouched.
func WithRemoteParent(ctx context.Context, sc SpanContext) context.Context {
	spanContext, err := ParseSpanContext(sc)
	if err != nil || !spanContext.IsValid() {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, spanContext)
}
