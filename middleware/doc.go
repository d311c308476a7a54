// Package middleware provides composable middleware for call execution.
//
// A [Middleware] is a function that wraps a callable. Middleware are
// composed into a chain using [Chain] and applied around every attempt the
// task queue makes. The first middleware in the slice is the outermost
// wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs call name, queue, duration, and outcome
//   - [Recover]: catches panics and converts them to [PanicError]
//   - [Timeout]: cancels the call context after the request's Timeout
//   - [Tracing]: wraps execution in an OpenTelemetry span
//   - [Metrics]: records per-call duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, req *call.Request, next middleware.Handler) (any, error) {
//	        // pre-processing
//	        res, err := next(ctx)
//	        // post-processing
//	        return res, err
//	    }
//	}
package middleware
