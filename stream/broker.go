package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Broker)(nil)
	_ ext.CallSubmitted = (*Broker)(nil)
	_ ext.CallEnqueued  = (*Broker)(nil)
	_ ext.CallStarted   = (*Broker)(nil)
	_ ext.CallSucceeded = (*Broker)(nil)
	_ ext.CallFailed    = (*Broker)(nil)
	_ ext.CallRetrying  = (*Broker)(nil)
	_ ext.CallCanceled  = (*Broker)(nil)
	_ ext.ScheduleFired = (*Broker)(nil)
	_ ext.Shutdown      = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker receives lifecycle events as an extension and fans them out to
// subscribers by topic.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	subscribers sync.Map // subscriberID → *Subscriber

	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a subscriber on the given topics. An existing
// subscriber with the same id is closed and replaced.
func (b *Broker) Subscribe(subscriberID string, topics []string, opts ...SubscribeOption) *Subscriber {
	sub := newSubscriber(subscriberID, b.bufferSize, b.defaultCredits, opts...)
	if prev, loaded := b.subscribers.Swap(subscriberID, sub); loaded {
		b.topics.UnsubscribeAll(subscriberID)
		prev.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to more topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) bool {
	sub, ok := b.GetSubscriber(subscriberID)
	if !ok {
		return false
	}
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return true
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by id.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// Publish broadcasts evt to every matching topic and returns how many
// subscribers received it.
func (b *Broker) Publish(evt *Event) int {
	delivered, dropped := b.topics.Broadcast(resolveTopics(evt), evt)
	b.totalPublished.Add(int64(delivered))
	b.totalDropped.Add(int64(dropped))
	return delivered
}

func (b *Broker) publishCall(typ EventType, rep *call.Report, data CallEventData) {
	data.CallID = rep.CallID.String()
	data.CallName = rep.Name
	data.State = string(rep.State)
	data.Response = string(rep.Response)

	topics := []string{CallTopic(data.CallID), NameTopic(rep.Name)}
	if !rep.GroupID.IsNil() {
		data.GroupID = rep.GroupID.String()
		topics = append(topics, GroupTopic(data.GroupID))
	}

	raw, err := json.Marshal(data)
	if err != nil {
		b.logger.Warn("stream: marshal call event", slog.String("error", err.Error()))
		return
	}
	b.Publish(&Event{
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Topics:    topics,
		Data:      raw,
	})
}

// ── Call lifecycle hooks ────────────────────────────

func (b *Broker) OnCallSubmitted(_ context.Context, rep *call.Report) error {
	var conflicts []string
	for _, r := range rep.Reasons {
		conflicts = append(conflicts, r.ResourceType+"/"+r.ResourceID+":"+string(r.Operation))
	}
	b.publishCall(EventCallSubmitted, rep, CallEventData{Conflicts: conflicts})
	return nil
}

func (b *Broker) OnCallEnqueued(_ context.Context, rep *call.Report) error {
	b.publishCall(EventCallEnqueued, rep, CallEventData{})
	return nil
}

func (b *Broker) OnCallStarted(_ context.Context, rep *call.Report) error {
	b.publishCall(EventCallStarted, rep, CallEventData{Attempt: rep.Attempts})
	return nil
}

func (b *Broker) OnCallSucceeded(_ context.Context, rep *call.Report, elapsed time.Duration) error {
	b.publishCall(EventCallSucceeded, rep, CallEventData{
		Attempt:   rep.Attempts,
		ElapsedMs: elapsed.Milliseconds(),
	})
	return nil
}

func (b *Broker) OnCallFailed(_ context.Context, rep *call.Report, callErr error) error {
	b.publishCall(EventCallFailed, rep, CallEventData{
		Attempt: rep.Attempts,
		Error:   callErr.Error(),
	})
	return nil
}

func (b *Broker) OnCallRetrying(_ context.Context, rep *call.Report, attempt int, delay time.Duration) error {
	b.publishCall(EventCallRetrying, rep, CallEventData{
		Attempt: attempt,
		DelayMs: delay.Milliseconds(),
	})
	return nil
}

func (b *Broker) OnCallCanceled(_ context.Context, rep *call.Report) error {
	b.publishCall(EventCallCanceled, rep, CallEventData{Error: rep.Error})
	return nil
}

// ── Schedule hooks ──────────────────────────────────

func (b *Broker) OnScheduleFired(_ context.Context, entryName string, rep *call.Report) error {
	raw, err := json.Marshal(ScheduleEventData{EntryName: entryName, CallID: rep.CallID.String()})
	if err != nil {
		return err
	}
	b.Publish(&Event{
		Type:      EventScheduleFired,
		Timestamp: time.Now().UTC(),
		Topics:    []string{CallTopic(rep.CallID.String())},
		Data:      raw,
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		b.topics.UnsubscribeAll(key.(string)) //nolint:errcheck // keys are subscriber ids
		value.(*Subscriber).Close()          //nolint:errcheck // sync.Map always stores *Subscriber
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
