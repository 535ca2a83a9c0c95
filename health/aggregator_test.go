package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	if agg := NewAggregator(AggregatorConfig{}); agg.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", agg.config.Timeout)
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(fixed("b", Healthy("")))
	agg.Register(fixed("a", Healthy("")))
	agg.Register(fixed("b", Degraded("")))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("CheckerNames() = %v, want [b a]", names)
	}

	r, err := agg.Check(context.Background(), "b")
	if err != nil || r.Status != StatusDegraded {
		t.Errorf("Check(b) = %v, %v; replacement not applied", r.Status, err)
	}
	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v", err)
	}
}

func TestAggregator_CheckAllWorstStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Result{Healthy(""), Healthy("")}, StatusHealthy},
		{"one degraded", []Result{Healthy(""), Degraded("")}, StatusDegraded},
		{"one unhealthy", []Result{Degraded(""), Unhealthy("", nil)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(AggregatorConfig{})
			for i, r := range tt.results {
				agg.Register(fixed(string(rune('a'+i)), r))
			}

			report := agg.CheckAll(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.results) {
				t.Errorf("Checks = %d, want %d", len(report.Checks), len(tt.results))
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Healthy("late")
	}))

	report := agg.CheckAll(context.Background())
	r := report.Checks["slow"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("slow check = %+v, want timeout", r)
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantCode int
	}{
		{"healthy", Healthy("ok"), http.StatusOK},
		{"degraded", Degraded("low"), http.StatusOK},
		{"unhealthy", Unhealthy("down", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(AggregatorConfig{})
			agg.Register(fixed("c", tt.result))

			rec := httptest.NewRecorder()
			Handler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}
