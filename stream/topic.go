package stream

import (
	"fmt"
	"strings"
	"sync"
)

// Topic names follow a pattern:
//
//	call:<callID>     events for one call
//	group:<groupID>   events for every call of a batch
//	name:<callName>   events for one callable
//	calls             every call lifecycle event
//	schedules         every schedule firing
//	firehose          everything
const (
	TopicCalls     = "calls"
	TopicSchedules = "schedules"
	TopicFirehose  = "firehose"
)

// CallTopic returns the topic name for a specific call.
func CallTopic(callID string) string { return "call:" + callID }

// GroupTopic returns the topic name for a call group.
func GroupTopic(groupID string) string { return "group:" + groupID }

// NameTopic returns the topic name for a callable.
func NameTopic(callName string) string { return "name:" + callName }

// TopicRegistry manages subscriber sets per topic.
// It is safe for concurrent use.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber // topic → subscriberID → subscriber
}

// NewTopicRegistry creates an empty topic registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{topics: make(map[string]map[string]*Subscriber)}
}

// Subscribe adds sub to topic, creating the topic if needed.
func (tr *TopicRegistry) Subscribe(topic string, sub *Subscriber) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		tr.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	sub.track(topic, true)
}

// Unsubscribe removes a subscriber from a topic. Empty topics are dropped.
func (tr *TopicRegistry) Unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.removeLocked(topic, subscriberID)
}

// UnsubscribeAll removes a subscriber from every topic.
func (tr *TopicRegistry) UnsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for topic := range tr.topics {
		tr.removeLocked(topic, subscriberID)
	}
}

func (tr *TopicRegistry) removeLocked(topic, subscriberID string) {
	subs, ok := tr.topics[topic]
	if !ok {
		return
	}
	if sub, exists := subs[subscriberID]; exists {
		sub.track(topic, false)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(tr.topics, topic)
	}
}

// Broadcast delivers evt once to every subscriber on any of topics. It
// returns how many subscribers accepted it and how many did not.
func (tr *TopicRegistry) Broadcast(topics []string, evt *Event) (delivered, dropped int) {
	tr.mu.RLock()
	targets := make(map[string]*Subscriber)
	for _, topic := range topics {
		for id, sub := range tr.topics[topic] {
			targets[id] = sub
		}
	}
	tr.mu.RUnlock()

	for _, sub := range targets {
		if sub.send(evt) {
			delivered++
		}
	}
	return delivered, len(targets) - delivered
}

// TopicCount returns the number of active topics.
func (tr *TopicRegistry) TopicCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics)
}

// SubscriberCount returns the number of subscribers on a topic.
func (tr *TopicRegistry) SubscriberCount(topic string) int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics[topic])
}

// resolveTopics returns every topic evt is published on.
func resolveTopics(evt *Event) []string {
	topics := make([]string, 0, len(evt.Topics)+2)
	topics = append(topics, TopicFirehose)
	switch {
	case strings.HasPrefix(string(evt.Type), "call."):
		topics = append(topics, TopicCalls)
	case strings.HasPrefix(string(evt.Type), "schedule."):
		topics = append(topics, TopicSchedules)
	}
	return append(topics, evt.Topics...)
}

// ParseTopicEntity splits an entity topic such as "call:call_01h..." into
// its kind and id. Global topics return empty strings.
func ParseTopicEntity(topic string) (kind, entityID string) {
	kind, entityID, ok := strings.Cut(topic, ":")
	if !ok {
		return "", ""
	}
	return kind, entityID
}

// ValidateTopic checks whether a topic string is valid.
func ValidateTopic(topic string) error {
	switch topic {
	case TopicCalls, TopicSchedules, TopicFirehose:
		return nil
	}

	kind, entityID := ParseTopicEntity(topic)
	if kind == "" || entityID == "" {
		return fmt.Errorf("stream: invalid topic %q", topic)
	}
	switch kind {
	case "call", "group", "name":
		return nil
	default:
		return fmt.Errorf("stream: unknown topic kind %q", kind)
	}
}
