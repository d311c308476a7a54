// Package call defines the call request, its report, the task wrapper that
// binds them, typed callable definitions, and search criteria.
//
// # Call Request
//
// A [Request] names a registered callable, carries its JSON-encoded
// arguments, and declares the resources it needs as a [resource.Map]:
//
//	req := call.NewRequest("sync_repo",
//	    call.WithResource(resource.Update, "repository", "repo-1"),
//	    call.WithKwarg("mirror", true),
//	    call.WithTags("repository:repo-1", "action:sync"),
//	)
//
// Declared resources never change after construction. Dependencies may be
// added by the coordinator (never removed) when a conflicting call must
// finish first.
//
// # Call Report
//
// A [Report] records the conflict response and the execution state:
//
//	waiting → running → succeeded
//	waiting → running → failed
//	waiting → running → canceled
//	waiting → canceled
//
// Transitions only move forward. Terminal reports are read-only.
//
// # Task
//
// A [Task] binds one Request to its Report and to ordered lifecycle hooks
// fired by the task queue at enqueue, start and dequeue. The dequeue hooks
// fire exactly once.
//
// # Registry
//
// [Registry] maps callable names to [HandlerFunc] values. Typed
// definitions decode keyword arguments into a struct:
//
//	var SyncRepo = call.NewDefinition("sync_repo",
//	    func(ctx context.Context, in SyncInput) (any, error) {
//	        return syncer.Sync(ctx, in.RepoID, in.Mirror)
//	    },
//	)
//	call.RegisterDefinition(registry, SyncRepo)
package call
