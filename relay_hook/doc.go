// Package relayhook bridges conductor lifecycle events to Relay for webhook
// delivery. When registered as an extension it emits typed webhook events
// (conductor.call.rejected, conductor.call.failed and so on) at every
// lifecycle point.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	hook := relayhook.New(r)
//	engine.WithExtension(hook)
//
// To restrict which events are emitted:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventCallSucceeded,
//	        relayhook.EventCallFailed,
//	    ),
//	)
package relayhook
