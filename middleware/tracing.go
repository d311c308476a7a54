package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conductor/call"
)

// tracerName is the instrumentation scope name for conductor tracing.
const tracerName = "github.com/xraph/conductor"

// Tracing returns middleware that wraps call execution in an OpenTelemetry
// span using the global TracerProvider. Without a configured provider the
// noop tracer is used.
//
// Span attributes: conductor.call.id, conductor.call.name, conductor.queue,
// conductor.group.id, conductor.attempt, conductor.asynchronous.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, req *call.Request, next Handler) (any, error) {
		ctx, span := tracer.Start(ctx, "conductor.call.execute",
			trace.WithAttributes(
				attribute.String("conductor.call.id", req.ID.String()),
				attribute.String("conductor.call.name", req.Name),
				attribute.String("conductor.queue", req.Queue),
				attribute.String("conductor.group.id", req.GroupID.String()),
				attribute.Int("conductor.attempt", attempt(ctx)),
				attribute.Bool("conductor.asynchronous", req.Asynchronous),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		res, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return res, err
	}
}
