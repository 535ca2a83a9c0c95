package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTelemetry(t *testing.T) (*tracetest.SpanRecorder, *sdkmetric.ManualReader, Tracer, Metrics) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return recorder, reader, NewTracer(tp.Tracer("test")), metrics
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRequestMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta RequestMeta
		want string
	}{
		{RequestMeta{Operation: "vehicle_by_vin", Method: "GET", Route: "/vin/{vin}"}, "motapi.vehicle_by_vin"},
		{RequestMeta{Method: "GET", Route: "/bulk-download"}, "motapi GET /bulk-download"},
		{RequestMeta{Method: "PUT", Endpoint: "/credentials"}, "motapi PUT /credentials"},
	}

	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}

func TestMiddleware_Success(t *testing.T) {
	recorder, reader, tracer, metrics := newTestTelemetry(t)
	var logs bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("debug", &logs))

	meta := RequestMeta{ID: "r1", Operation: "vehicle_by_registration", Method: "GET", Route: "/registration/{registration}", Endpoint: "/registration/ABC123"}
	fn := mw.Wrap(func(context.Context, RequestMeta) ([]byte, error) {
		return []byte(`{"ok":true}`), nil
	})

	payload, err := fn(context.Background(), meta)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	if string(payload) != `{"ok":true}` {
		t.Errorf("payload = %s", payload)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "motapi.vehicle_by_registration" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", spans[0].Status().Code)
	}
	for _, kv := range spans[0].Attributes() {
		if kv.Value.AsString() == "/registration/ABC123" {
			t.Errorf("span attribute %s carries the concrete endpoint", kv.Key)
		}
	}

	if got := collectSum(t, reader, "motapi.request.total"); got != 1 {
		t.Errorf("request.total = %d, want 1", got)
	}
	if got := collectSum(t, reader, "motapi.request.errors"); got != 0 {
		t.Errorf("request.errors = %d, want 0", got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("upstream call completed")) {
		t.Errorf("log output = %q", logs.String())
	}
}

func TestMiddleware_ErrorPassesThrough(t *testing.T) {
	recorder, reader, tracer, metrics := newTestTelemetry(t)
	var logs bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("info", &logs))

	wantErr := errors.New("connection refused")
	fn := mw.Wrap(func(context.Context, RequestMeta) ([]byte, error) {
		return nil, wantErr
	})

	_, err := fn(context.Background(), RequestMeta{Method: "GET", Route: "/vin/{vin}"})
	if err != wantErr {
		t.Fatalf("error = %v, want the wrapped call's error unchanged", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one errored span, got %d", len(spans))
	}
	if got := collectSum(t, reader, "motapi.request.errors"); got != 1 {
		t.Errorf("request.errors = %d, want 1", got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("upstream call failed")) {
		t.Errorf("log output = %q", logs.String())
	}
}

func TestMetrics_TokenAndDrops(t *testing.T) {
	_, reader, _, metrics := newTestTelemetry(t)
	ctx := context.Background()

	metrics.RecordTokenRefresh(ctx, nil)
	metrics.RecordTokenRefresh(ctx, errors.New("boom"))
	metrics.RecordDroppedEvent(ctx, "request-success")

	if got := collectSum(t, reader, "motapi.token.refresh"); got != 2 {
		t.Errorf("token.refresh = %d, want 2", got)
	}
	if got := collectSum(t, reader, "motapi.events.dropped"); got != 1 {
		t.Errorf("events.dropped = %d, want 1", got)
	}
}

func TestNewMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	if mw.Metrics() == nil || mw.Logger() == nil {
		t.Fatal("nil components were not replaced")
	}

	fn := mw.Wrap(func(context.Context, RequestMeta) ([]byte, error) { return nil, nil })
	if _, err := fn(context.Background(), RequestMeta{}); err != nil {
		t.Errorf("error = %v", err)
	}
}
