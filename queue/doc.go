// Package queue limits how calls leave a task queue lane.
//
// A lane is the Queue field of a call request. Each lane may carry a
// [Config] with a concurrency cap and a token-bucket rate limit
// (golang.org/x/time/rate):
//
//	m := queue.NewManager(
//	    queue.Config{Name: "critical", MaxConcurrency: 20},
//	    queue.Config{Name: "bulk", RateLimit: 5, RateBurst: 10},
//	)
//	if m.Acquire("bulk") {
//	    defer m.Release("bulk")
//	    // run the call
//	}
//
// Lanes without a Config have no limits beyond the worker count of the
// task queue.
package queue
