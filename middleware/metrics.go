package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/conductor/call"
)

// meterName is the instrumentation scope name for conductor metrics.
const meterName = "github.com/xraph/conductor"

// Metrics returns middleware that records per-call execution metrics using
// the global OTel MeterProvider.
//
// Instruments:
//   - conductor.call.duration (Float64Histogram): attempt time in seconds
//   - conductor.call.executions (Int64Counter): total attempts
//
// Both carry call_name, queue and status ("ok" or "error").
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments.
	duration, _ := meter.Float64Histogram(
		"conductor.call.duration",
		metric.WithDescription("Duration of call execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"conductor.call.executions",
		metric.WithDescription("Total number of call executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, req *call.Request, next Handler) (any, error) {
		start := time.Now()
		res, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("call_name", req.Name),
			attribute.String("queue", req.Queue),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return res, err
	}
}
