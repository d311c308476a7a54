package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/resource"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.CallSubmitted = (*MetricsExtension)(nil)
	_ ext.CallEnqueued  = (*MetricsExtension)(nil)
	_ ext.CallStarted   = (*MetricsExtension)(nil)
	_ ext.CallSucceeded = (*MetricsExtension)(nil)
	_ ext.CallFailed    = (*MetricsExtension)(nil)
	_ ext.CallRetrying  = (*MetricsExtension)(nil)
	_ ext.CallCanceled  = (*MetricsExtension)(nil)
	_ ext.ScheduleFired = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide call lifecycle counters via a
// go-utils MetricFactory. Submissions are split by the conflict response
// the coordinator decided.
type MetricsExtension struct {
	CallAccepted  gu.Counter
	CallPostponed gu.Counter
	CallRejected  gu.Counter
	CallEnqueued  gu.Counter
	CallStarted   gu.Counter
	CallSucceeded gu.Counter
	CallFailed    gu.Counter
	CallRetried   gu.Counter
	CallCanceled  gu.Counter
	ScheduleFired gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("conductor/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		CallAccepted:  factory.Counter("conductor.call.accepted"),
		CallPostponed: factory.Counter("conductor.call.postponed"),
		CallRejected:  factory.Counter("conductor.call.rejected"),
		CallEnqueued:  factory.Counter("conductor.call.enqueued"),
		CallStarted:   factory.Counter("conductor.call.started"),
		CallSucceeded: factory.Counter("conductor.call.succeeded"),
		CallFailed:    factory.Counter("conductor.call.failed"),
		CallRetried:   factory.Counter("conductor.call.retried"),
		CallCanceled:  factory.Counter("conductor.call.canceled"),
		ScheduleFired: factory.Counter("conductor.schedule.fired"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Submission ──────────────────────────────────────

// OnCallSubmitted implements ext.CallSubmitted.
func (m *MetricsExtension) OnCallSubmitted(_ context.Context, rep *call.Report) error {
	switch rep.Response {
	case resource.Postponed:
		m.CallPostponed.Inc()
	case resource.Rejected:
		m.CallRejected.Inc()
	default:
		m.CallAccepted.Inc()
	}
	return nil
}

// ── Execution ───────────────────────────────────────

// OnCallEnqueued implements ext.CallEnqueued.
func (m *MetricsExtension) OnCallEnqueued(_ context.Context, _ *call.Report) error {
	m.CallEnqueued.Inc()
	return nil
}

// OnCallStarted implements ext.CallStarted.
func (m *MetricsExtension) OnCallStarted(_ context.Context, _ *call.Report) error {
	m.CallStarted.Inc()
	return nil
}

// OnCallSucceeded implements ext.CallSucceeded.
func (m *MetricsExtension) OnCallSucceeded(_ context.Context, _ *call.Report, _ time.Duration) error {
	m.CallSucceeded.Inc()
	return nil
}

// OnCallFailed implements ext.CallFailed.
func (m *MetricsExtension) OnCallFailed(_ context.Context, _ *call.Report, _ error) error {
	m.CallFailed.Inc()
	return nil
}

// OnCallRetrying implements ext.CallRetrying.
func (m *MetricsExtension) OnCallRetrying(_ context.Context, _ *call.Report, _ int, _ time.Duration) error {
	m.CallRetried.Inc()
	return nil
}

// OnCallCanceled implements ext.CallCanceled.
func (m *MetricsExtension) OnCallCanceled(_ context.Context, _ *call.Report) error {
	m.CallCanceled.Inc()
	return nil
}

// ── Schedules ───────────────────────────────────────

// OnScheduleFired implements ext.ScheduleFired.
func (m *MetricsExtension) OnScheduleFired(_ context.Context, _ string, _ *call.Report) error {
	m.ScheduleFired.Inc()
	return nil
}
