package call

import "context"

type taskKey struct{}

// WithTask returns a context carrying t. The task queue attaches the
// running task so handlers can report progress.
func WithTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, t)
}

// TaskFromContext returns the task attached to ctx, if any.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	t, ok := ctx.Value(taskKey{}).(*Task)
	return t, ok && t != nil
}

// ReportProgress attaches progress to the report of the task running in
// ctx. It reports false when ctx carries no task or the task has finished.
func ReportProgress(ctx context.Context, progress any) bool {
	t, ok := TaskFromContext(ctx)
	if !ok {
		return false
	}
	return t.Update(func(r *Report) { r.Progress = progress })
}
