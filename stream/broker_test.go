package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testReport(opts ...call.RequestOption) *call.Report {
	return call.NewReport(call.NewRequest("sync_repo", opts...))
}

func receive(t *testing.T, sub *Subscriber) *Event {
	t.Helper()
	select {
	case evt := <-sub.C():
		return evt
	case <-time.After(time.Second):
		t.Fatalf("subscriber %s timed out", sub.ID())
		return nil
	}
}

func expectNone(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case evt := <-sub.C():
		t.Fatalf("subscriber %s got unexpected %s event", sub.ID(), evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerCallTopic(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	rep := testReport()
	other := testReport()
	sub := b.Subscribe("watch-one", []string{CallTopic(rep.CallID.String())})

	if err := b.OnCallStarted(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	expectNone(t, sub)

	if err := b.OnCallSucceeded(context.Background(), rep, 120*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	evt := receive(t, sub)
	if evt.Type != EventCallSucceeded {
		t.Errorf("Type = %q, want %q", evt.Type, EventCallSucceeded)
	}
	var data CallEventData
	if err := evt.Decode(&data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if data.CallID != rep.CallID.String() || data.ElapsedMs != 120 {
		t.Errorf("data = %+v", data)
	}
}

func TestBrokerGroupTopic(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	groupID := id.NewGroupID()
	sub := b.Subscribe("watch-group", []string{GroupTopic(groupID.String())})

	first := testReport(call.WithGroup(groupID))
	second := testReport(call.WithGroup(groupID))
	loose := testReport()

	ctx := context.Background()
	_ = b.OnCallEnqueued(ctx, first)
	_ = b.OnCallEnqueued(ctx, loose)
	_ = b.OnCallFailed(ctx, second, errors.New("boom"))

	if evt := receive(t, sub); evt.Type != EventCallEnqueued {
		t.Errorf("first event = %q, want %q", evt.Type, EventCallEnqueued)
	}
	evt := receive(t, sub)
	var data CallEventData
	if err := evt.Decode(&data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if data.Error != "boom" || data.GroupID != groupID.String() {
		t.Errorf("data = %+v", data)
	}
	expectNone(t, sub)
}

func TestBrokerGlobalTopics(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	firehose := b.Subscribe("firehose", []string{TopicFirehose})
	calls := b.Subscribe("calls", []string{TopicCalls})
	schedules := b.Subscribe("schedules", []string{TopicSchedules})

	ctx := context.Background()
	rep := testReport()
	_ = b.OnCallCanceled(ctx, rep)
	_ = b.OnScheduleFired(ctx, "nightly", rep)

	if evt := receive(t, firehose); evt.Type != EventCallCanceled {
		t.Errorf("firehose first = %q", evt.Type)
	}
	if evt := receive(t, firehose); evt.Type != EventScheduleFired {
		t.Errorf("firehose second = %q", evt.Type)
	}
	if evt := receive(t, calls); evt.Type != EventCallCanceled {
		t.Errorf("calls = %q", evt.Type)
	}
	expectNone(t, calls)
	if evt := receive(t, schedules); evt.Type != EventScheduleFired {
		t.Errorf("schedules = %q", evt.Type)
	}
}

func TestBrokerSubmittedCarriesConflicts(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("names", []string{NameTopic("sync_repo")})

	rep := testReport()
	rep.Response = resource.Rejected
	rep.Reasons = []resource.Reason{{ResourceType: "repository", ResourceID: "r1", Operation: resource.Delete}}
	_ = b.OnCallSubmitted(context.Background(), rep)

	var data CallEventData
	if err := receive(t, sub).Decode(&data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if data.Response != string(resource.Rejected) {
		t.Errorf("Response = %q", data.Response)
	}
	if len(data.Conflicts) != 1 || data.Conflicts[0] != "repository/r1:delete" {
		t.Errorf("Conflicts = %v", data.Conflicts)
	}
}

func TestBrokerRemoveSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	sub := b.Subscribe("sub-rm", []string{TopicFirehose})
	b.RemoveSubscriber("sub-rm")

	_ = b.OnCallStarted(context.Background(), testReport())

	if _, ok := <-sub.C(); ok {
		t.Fatal("channel should be closed after RemoveSubscriber")
	}
	if n := b.Topics().SubscriberCount(TopicFirehose); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}

func TestBrokerResubscribeReplaces(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	old := b.Subscribe("dup", []string{TopicCalls})
	fresh := b.Subscribe("dup", []string{TopicSchedules})

	if _, ok := <-old.C(); ok {
		t.Fatal("replaced subscriber should be closed")
	}
	if b.Topics().SubscriberCount(TopicCalls) != 0 {
		t.Error("replaced subscriber still on its old topic")
	}
	if got, _ := b.GetSubscriber("dup"); got != fresh {
		t.Error("GetSubscriber should return the new subscriber")
	}
}

func TestBrokerShutdownClosesSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	s1 := b.Subscribe("s1", []string{TopicCalls})
	s2 := b.Subscribe("s2", []string{TopicFirehose})

	if err := b.OnShutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []*Subscriber{s1, s2} {
		if _, ok := <-sub.C(); ok {
			t.Errorf("subscriber %s not closed", sub.ID())
		}
	}
	if stats := b.Stats(); stats.SubscriberCount != 0 || stats.TopicCount != 0 {
		t.Errorf("stats after shutdown = %+v", stats)
	}
}

func TestBrokerStats(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger(), WithDefaultCredits(1))
	_ = b.Subscribe("s1", []string{TopicCalls})
	_ = b.Subscribe("s2", []string{TopicSchedules, TopicFirehose})

	ctx := context.Background()
	rep := testReport()
	// The first event spends each subscriber's only credit.
	_ = b.OnCallStarted(ctx, rep)
	_ = b.OnCallSucceeded(ctx, rep, 0)

	stats := b.Stats()
	if stats.SubscriberCount != 2 {
		t.Errorf("SubscriberCount = %d, want 2", stats.SubscriberCount)
	}
	if stats.TopicCount != 3 {
		t.Errorf("TopicCount = %d, want 3", stats.TopicCount)
	}
	if stats.TotalPublished != 2 || stats.TotalDropped != 2 {
		t.Errorf("published/dropped = %d/%d, want 2/2", stats.TotalPublished, stats.TotalDropped)
	}
}

func TestSubscriberCredits(t *testing.T) {
	t.Parallel()

	sub := newSubscriber("credit-sub", 10, 2)
	evt := &Event{Type: EventCallEnqueued, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}

	if !sub.send(evt) || !sub.send(evt) {
		t.Fatal("first two sends should succeed")
	}
	if sub.send(evt) {
		t.Fatal("third send should fail (no credits)")
	}

	sub.AddCredits(5)
	if sub.Credits() != 5 {
		t.Errorf("Credits = %d, want 5", sub.Credits())
	}
	if !sub.send(evt) {
		t.Fatal("send after credit replenishment should succeed")
	}
}

func TestSubscriberFullBufferKeepsCredit(t *testing.T) {
	t.Parallel()

	sub := newSubscriber("tiny", 1, 10)
	evt := &Event{Type: EventCallEnqueued}

	if !sub.send(evt) {
		t.Fatal("first send should succeed")
	}
	if sub.send(evt) {
		t.Fatal("send into a full buffer should fail")
	}
	if sub.Credits() != 9 {
		t.Errorf("Credits = %d, want 9", sub.Credits())
	}
}

func TestSubscriberFilter(t *testing.T) {
	t.Parallel()

	sub := newSubscriber("filter-sub", 10, 100, WithFilter(func(e *Event) bool {
		return e.Type == EventCallFailed
	}))

	if sub.send(&Event{Type: EventCallSucceeded}) {
		t.Fatal("succeeded event should be filtered out")
	}
	if !sub.send(&Event{Type: EventCallFailed}) {
		t.Fatal("failed event should pass filter")
	}
}

func TestSubscriberSendAfterClose(t *testing.T) {
	t.Parallel()

	sub := newSubscriber("closed", 10, 100)
	sub.Close()
	sub.Close()
	if sub.send(&Event{Type: EventCallStarted}) {
		t.Fatal("send after Close should fail")
	}
}

func TestTopicValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic string
		valid bool
	}{
		{TopicCalls, true},
		{TopicSchedules, true},
		{TopicFirehose, true},
		{"call:call_01h", true},
		{"group:grp_01h", true},
		{"name:sync_repo", true},
		{"invalid", false},
		{"unknown:entity", false},
		{"call:", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			err := ValidateTopic(tt.topic)
			if tt.valid && err != nil {
				t.Errorf("ValidateTopic(%q) returned error: %v", tt.topic, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateTopic(%q) should return error", tt.topic)
			}
		})
	}
}

func TestTopicRegistry(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()
	sub1 := newSubscriber("s1", 10, 100)
	sub2 := newSubscriber("s2", 10, 100)

	tr.Subscribe("topic-a", sub1)
	tr.Subscribe("topic-a", sub2)
	tr.Subscribe("topic-b", sub1)

	if tr.TopicCount() != 2 {
		t.Errorf("TopicCount = %d, want 2", tr.TopicCount())
	}
	if len(sub1.Topics()) != 2 {
		t.Errorf("sub1 topics = %v, want 2", sub1.Topics())
	}

	tr.Unsubscribe("topic-a", "s2")
	if tr.SubscriberCount("topic-a") != 1 {
		t.Errorf("SubscriberCount(topic-a) = %d, want 1", tr.SubscriberCount("topic-a"))
	}

	tr.UnsubscribeAll("s1")
	if tr.TopicCount() != 0 {
		t.Errorf("TopicCount after UnsubscribeAll = %d, want 0", tr.TopicCount())
	}
	if len(sub1.Topics()) != 0 {
		t.Errorf("sub1 still tracks %v", sub1.Topics())
	}
}

func TestBroadcastDeduplication(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()
	sub := newSubscriber("dedup-sub", 10, 100)
	tr.Subscribe("topic-x", sub)
	tr.Subscribe("topic-y", sub)

	delivered, dropped := tr.Broadcast([]string{"topic-x", "topic-y"}, &Event{Type: EventCallEnqueued})
	if delivered != 1 || dropped != 0 {
		t.Errorf("Broadcast = %d/%d, want 1/0 (deduplicated)", delivered, dropped)
	}
}

func TestResolveTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		evt      *Event
		expected []string
	}{
		{
			evt:      &Event{Type: EventCallEnqueued, Topics: []string{"call:c1", "name:n"}},
			expected: []string{TopicFirehose, TopicCalls, "call:c1", "name:n"},
		},
		{
			evt:      &Event{Type: EventScheduleFired, Topics: []string{"call:c2"}},
			expected: []string{TopicFirehose, TopicSchedules, "call:c2"},
		},
		{
			evt:      &Event{Type: "other"},
			expected: []string{TopicFirehose},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.evt.Type), func(t *testing.T) {
			topics := resolveTopics(tt.evt)
			if len(topics) != len(tt.expected) {
				t.Fatalf("got %d topics, want %d: %v", len(topics), len(tt.expected), topics)
			}
			for i, topic := range topics {
				if topic != tt.expected[i] {
					t.Errorf("topic[%d] = %q, want %q", i, topic, tt.expected[i])
				}
			}
		})
	}
}
