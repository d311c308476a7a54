// Package ext defines the extension system for Conductor.
//
// Extensions are notified of call lifecycle events and can react to them:
// recording metrics, writing audit logs, granting and revoking access.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnCallSucceeded(ctx context.Context, rep *call.Report, elapsed time.Duration) error {
//	    log.Printf("call %s finished in %s", rep.CallID, elapsed)
//	    return nil
//	}
//
// # Call Lifecycle Hooks
//
//   - [CallSubmitted]: the coordinator decided accepted, postponed or rejected
//   - [CallEnqueued]: the task entered the task queue
//   - [CallStarted]: the task queue began executing the call
//   - [CallSucceeded]: the call finished successfully
//   - [CallFailed]: the call failed with no retries remaining
//   - [CallRetrying]: an attempt failed and will be retried
//   - [CallCanceled]: the call was canceled before finishing
//
// # Other Hooks
//
//   - [ScheduleFired]: a schedule entry submitted a call
//   - [Shutdown]: the coordinator is stopping
//
// Hook errors are logged and never interrupt the call pipeline.
package ext
