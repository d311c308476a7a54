// Package conductor provides a resource-aware call coordinator for Go.
// It schedules units of asynchronous work ("calls") against shared named
// resources and guarantees that conflicting calls never run concurrently.
//
// Conductor is designed as a library, not a service. Import it, configure a
// store for the resource ledger, and submit call requests through the
// coordinator.
//
// # Quick Start
//
//	type SyncInput struct {
//	    Repository string `json:"repository"`
//	}
//
//	var SyncRepository = call.NewDefinition("sync_repo",
//	    func(ctx context.Context, in SyncInput) (any, error) { ... },
//	)
//
//	eng, err := engine.New(memory.New(), engine.WithLogger(logger))
//	if err != nil { ... }
//	engine.Register(eng, SyncRepository)
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop(ctx)
//
//	req := SyncRepository.Request(SyncInput{Repository: "repo-1"},
//	    call.WithResource(resource.Update, "repository", "repo-1"),
//	)
//	report, err := eng.Coordinator().ExecuteCall(ctx, req)
//
// # Architecture
//
// Every submission computes conflicts against the call resource ledger using
// a fixed conflict matrix. Accepted and postponed calls register their
// resource claims and are handed to the task queue; postponed calls wait for
// their blockers through conflict-derived dependencies. Rejected calls never
// run. Claims are removed exactly once, when the owning call reaches a
// terminal state.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package conductor
