package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes one upstream API call for telemetry purposes.
type RequestMeta struct {
	ID        string // Per-call request id
	Operation string // Public operation name, e.g. vehicle_by_registration
	Method    string // HTTP method
	Route     string // Path template, e.g. /registration/{registration}
	Endpoint  string // Concrete request path
}

// SpanName returns the span name for this request.
// Format: motapi.<operation>, or "motapi <METHOD> <route>" without an operation.
func (m RequestMeta) SpanName() string {
	if m.Operation != "" {
		return "motapi." + m.Operation
	}
	return "motapi " + m.Method + " " + m.routeOrEndpoint()
}

func (m RequestMeta) routeOrEndpoint() string {
	if m.Route != "" {
		return m.Route
	}
	return m.Endpoint
}

// Tracer wraps OpenTelemetry tracing with request span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a client span for an upstream call.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with request metadata as attributes. The
// route, not the concrete endpoint, is used so identifiers such as
// registrations do not end up in span attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", meta.Method),
		attribute.String("http.route", meta.routeOrEndpoint()),
		attribute.Bool("motapi.error", false),
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("motapi.operation", meta.Operation))
	}
	if meta.ID != "" {
		attrs = append(attrs, attribute.String("motapi.request_id", meta.ID))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("motapi.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
