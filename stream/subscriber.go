package stream

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives events from the topics it is subscribed to.
//
// Delivery is credit-based: every delivered event spends one credit and
// the broker skips a subscriber with no credits left. A full buffer drops
// the event without spending a credit.
type Subscriber struct {
	id     string
	ch     chan *Event
	filter func(*Event) bool

	credits atomic.Int64

	// closeMu orders sends before the channel is closed.
	closeMu sync.RWMutex
	closed  bool

	mu     sync.Mutex
	topics map[string]struct{}
}

// SubscribeOption configures a Subscriber.
type SubscribeOption func(*Subscriber)

// WithFilter delivers only events for which fn returns true.
func WithFilter(fn func(*Event) bool) SubscribeOption {
	return func(s *Subscriber) { s.filter = fn }
}

// WithCredits overrides the broker's initial credit grant.
func WithCredits(n int64) SubscribeOption {
	return func(s *Subscriber) { s.credits.Store(n) }
}

func newSubscriber(id string, bufferSize int, credits int64, opts ...SubscribeOption) *Subscriber {
	s := &Subscriber{
		id:     id,
		ch:     make(chan *Event, bufferSize),
		topics: make(map[string]struct{}),
	}
	s.credits.Store(credits)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the event channel. It is closed when the subscriber is removed
// or the broker shuts down.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// AddCredits replenishes flow-control credits.
func (s *Subscriber) AddCredits(n int64) { s.credits.Add(n) }

// Credits returns the current credit count.
func (s *Subscriber) Credits() int64 { return s.credits.Load() }

// Topics returns the subscribed topic names.
func (s *Subscriber) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

func (s *Subscriber) track(topic string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.topics[topic] = struct{}{}
	} else {
		delete(s.topics, topic)
	}
}

// send reports whether evt was delivered.
func (s *Subscriber) send(evt *Event) bool {
	if s.filter != nil && !s.filter(evt) {
		return false
	}
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return false
	}
	if !s.spendCredit() {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		s.credits.Add(1)
		return false
	}
}

func (s *Subscriber) spendCredit() bool {
	for {
		current := s.credits.Load()
		if current <= 0 {
			return false
		}
		if s.credits.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

// Close closes the event channel. Safe to call more than once.
func (s *Subscriber) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
