package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records client-side telemetry for upstream calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records an upstream call with duration and error status.
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error)

	// RecordAdmissionWait records how long a call was held by the admission controller.
	RecordAdmissionWait(ctx context.Context, wait time.Duration)

	// RecordTokenRefresh records the outcome of a token exchange.
	RecordTokenRefresh(ctx context.Context, err error)

	// RecordDroppedEvent records a lifecycle event an observer could not accept.
	RecordDroppedEvent(ctx context.Context, kind string)
}

type metricsImpl struct {
	requestTotal    metric.Int64Counter
	requestErrors   metric.Int64Counter
	requestDuration metric.Float64Histogram
	admissionWait   metric.Float64Histogram
	tokenRefresh    metric.Int64Counter
	droppedEvents   metric.Int64Counter
}

// NewMetrics creates the client instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.requestTotal, err = meter.Int64Counter(
		"motapi.request.total",
		metric.WithDescription("Total number of upstream API calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.requestErrors, err = meter.Int64Counter(
		"motapi.request.errors",
		metric.WithDescription("Total number of failed upstream API calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.requestDuration, err = meter.Float64Histogram(
		"motapi.request.duration_ms",
		metric.WithDescription("Upstream API call duration in milliseconds, admission wait included"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.admissionWait, err = meter.Float64Histogram(
		"motapi.admission.wait_ms",
		metric.WithDescription("Time calls spent blocked by client-side rate limits"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.tokenRefresh, err = meter.Int64Counter(
		"motapi.token.refresh",
		metric.WithDescription("OAuth2 token exchanges by outcome"),
		metric.WithUnit("{exchange}"),
	); err != nil {
		return nil, err
	}

	if m.droppedEvents, err = meter.Int64Counter(
		"motapi.events.dropped",
		metric.WithDescription("Lifecycle events dropped because an observer was full"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", meta.Method),
		attribute.String("http.route", meta.routeOrEndpoint()),
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("motapi.operation", meta.Operation))
	}
	opt := metric.WithAttributes(attrs...)

	m.requestTotal.Add(ctx, 1, opt)
	if err != nil {
		m.requestErrors.Add(ctx, 1, opt)
	}
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordAdmissionWait(ctx context.Context, wait time.Duration) {
	m.admissionWait.Record(ctx, float64(wait.Milliseconds()))
}

func (m *metricsImpl) RecordTokenRefresh(ctx context.Context, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.tokenRefresh.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metricsImpl) RecordDroppedEvent(ctx context.Context, kind string) {
	m.droppedEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event.kind", kind)))
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(context.Context, RequestMeta, time.Duration, error) {}
func (noopMetrics) RecordAdmissionWait(context.Context, time.Duration)              {}
func (noopMetrics) RecordTokenRefresh(context.Context, error)                       {}
func (noopMetrics) RecordDroppedEvent(context.Context, string)                      {}
