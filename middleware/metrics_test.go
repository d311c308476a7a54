package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/xraph/conductor/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordsDuration(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_, _ = m(context.Background(), newTestRequest(), noop)

	metric := findMetric(collectMetrics(t, reader), "conductor.call.duration")
	if metric == nil {
		t.Fatal("conductor.call.duration metric not found")
	}
	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected Histogram[float64] data type")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("data points = %+v", hist.DataPoints)
	}
}

func TestMetrics_RecordsStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "ok"},
		{"failure", errors.New("nope"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, mp := setupTestMeter()
			m := mw.MetricsWithMeter(mp.Meter("test"))

			_, _ = m(context.Background(), newTestRequest(), func(context.Context) (any, error) {
				return nil, tt.err
			})

			metric := findMetric(collectMetrics(t, reader), "conductor.call.executions")
			if metric == nil {
				t.Fatal("conductor.call.executions metric not found")
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatal("expected Sum[int64] data type")
			}
			if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Fatalf("data points = %+v", sum.DataPoints)
			}

			attrs := sum.DataPoints[0].Attributes
			if v, ok := attrs.Value(attribute.Key("status")); !ok || v.AsString() != tt.status {
				t.Errorf("status = %v, want %s", v.AsString(), tt.status)
			}
			if v, ok := attrs.Value(attribute.Key("call_name")); !ok || v.AsString() != "sync_repo" {
				t.Errorf("call_name = %v", v.AsString())
			}
			if v, ok := attrs.Value(attribute.Key("queue")); !ok || v.AsString() != "content" {
				t.Errorf("queue = %v", v.AsString())
			}
		})
	}
}

func TestMetrics_DefaultNoopSafe(t *testing.T) {
	if _, err := mw.Metrics()(context.Background(), newTestRequest(), noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
