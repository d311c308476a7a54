// Package engine wires the conductor subsystems together: the callable
// registry, the in-process task queue with its middleware chain, the
// coordinator and the recurring-call scheduler, all on top of one store.
//
// The engine package sits above every subsystem package and below the
// application layer, so the root conductor package never has to import
// them.
//
// # Building an Engine
//
//	s := postgres.NewFromPool(pool)
//	eng, err := engine.New(s,
//	    engine.WithConfig(cfg),
//	    engine.WithLogger(logger),
//	    engine.WithExtension(auditExtension),
//	    engine.WithBackoff(backoff.Default()),
//	    engine.WithQueueConfig(queue.Config{
//	        Name:      "exports",
//	        RateLimit: 5,
//	    }),
//	)
//
// # Registering Callables
//
//	engine.Register(eng, SyncRepository)
//	eng.Handle("delete_repository", deleteRepository)
//
//	// Recurring calls; safe to repeat on every boot.
//	engine.RegisterSchedule(ctx, eng, "nightly-sync", "0 3 * * *",
//	    SyncRepository.Request(SyncInput{Repository: "repo-1"},
//	        call.WithResource(resource.Update, "repository", "repo-1"),
//	    ),
//	)
//
// # Submitting Calls
//
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop(ctx)
//
//	report, err := eng.Coordinator().ExecuteCall(ctx, req)
//
// # Options
//
//   - [WithConfig]: concurrency, lanes, poll intervals, retention
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the execution chain
//   - [WithBackoff]: set the retry backoff strategy
//   - [WithQueueConfig]: per-lane rate limits and concurrency
//   - [WithCoordinatorOptions]: task hooks, snapshot codec
//   - [WithTracerProvider] and [WithMeterProvider]: OpenTelemetry providers
package engine
