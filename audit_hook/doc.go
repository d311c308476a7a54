// Package audithook is a conductor extension that turns call lifecycle
// events into audit records for an append-only audit trail.
//
// Every submission, state change and schedule firing emits a structured
// [AuditEvent] through the [Recorder] interface. Severity follows the
// outcome: info for normal progress, warning for postponed calls and
// retries, critical for rejections and terminal failures. Metadata carries
// the call name, group, attempts and the conflicting resources when a call
// was not accepted.
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    logger.InfoContext(ctx, evt.Action,
//	        slog.String("call_id", evt.ResourceID),
//	        slog.String("outcome", evt.Outcome),
//	    )
//	    return nil
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionCallRejected,
//	        audithook.ActionCallFailed,
//	    ),
//	)
package audithook
