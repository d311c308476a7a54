package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/ledger"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/snapshot"
)

// Ensure Store implements every subsystem store at compile time.
// We can't import store here (import cycle in tests), so we verify each subsystem.
var (
	_ ledger.Store   = (*Store)(nil)
	_ snapshot.Store = (*Store)(nil)
	_ schedule.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	// claims keeps insertion order so conflict reasons are deterministic.
	claims    []*resource.Claim
	queued    map[string]*snapshot.QueuedCall
	schedules map[string]*schedule.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		queued:    make(map[string]*snapshot.QueuedCall),
		schedules: make(map[string]*schedule.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Ledger Store
// ──────────────────────────────────────────────────

// InsertClaims persists claims.
func (m *Store) InsertClaims(_ context.Context, claims []*resource.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range claims {
		cp := *c
		m.claims = append(m.claims, &cp)
	}
	return nil
}

// FindClaims returns claims on any of the given resources in insertion order.
func (m *Store) FindClaims(_ context.Context, keys []resource.Key) ([]*resource.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[resource.Key]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}

	var out []*resource.Claim
	for _, c := range m.claims {
		if _, ok := want[c.Key()]; !ok {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// ListClaims returns every claim held by callID.
func (m *Store) ListClaims(_ context.Context, callID id.CallID) ([]*resource.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*resource.Claim
	for _, c := range m.claims {
		if c.CallID.String() != callID.String() {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// RemoveClaims deletes every claim held by callID.
func (m *Store) RemoveClaims(_ context.Context, callID id.CallID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.claims[:0]
	for _, c := range m.claims {
		if c.CallID.String() != callID.String() {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(m.claims); i++ {
		m.claims[i] = nil
	}
	m.claims = kept
	return nil
}

// ClearClaims deletes every claim.
func (m *Store) ClearClaims(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = nil
	return nil
}

// ──────────────────────────────────────────────────
// Snapshot Store
// ──────────────────────────────────────────────────

// SaveQueuedCall persists a queued call, replacing any previous entry.
func (m *Store) SaveQueuedCall(_ context.Context, qc *snapshot.QueuedCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *qc
	cp.Descriptor = append([]byte(nil), qc.Descriptor...)
	m.queued[qc.CallID.String()] = &cp
	return nil
}

// DeleteQueuedCall removes the entry for callID if present.
func (m *Store) DeleteQueuedCall(_ context.Context, callID id.CallID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queued, callID.String())
	return nil
}

// ListQueuedCalls returns every entry ordered by EnqueuedAt.
func (m *Store) ListQueuedCalls(_ context.Context) ([]*snapshot.QueuedCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*snapshot.QueuedCall, 0, len(m.queued))
	for _, qc := range m.queued {
		cp := *qc
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, k int) bool {
		if !result[i].EnqueuedAt.Equal(result[k].EnqueuedAt) {
			return result[i].EnqueuedAt.Before(result[k].EnqueuedAt)
		}
		return result[i].CallID.String() < result[k].CallID.String()
	})
	return result, nil
}

// ClearQueuedCalls removes every entry.
func (m *Store) ClearQueuedCalls(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = make(map[string]*snapshot.QueuedCall)
	return nil
}

// ──────────────────────────────────────────────────
// Schedule Store
// ──────────────────────────────────────────────────

// RegisterSchedule persists a new entry. Names must be unique.
func (m *Store) RegisterSchedule(_ context.Context, e *schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.schedules {
		if existing.Name == e.Name {
			return conductor.ErrDuplicateSchedule
		}
	}
	cp := *e
	m.schedules[e.ID.String()] = &cp
	return nil
}

// GetSchedule retrieves an entry by ID.
func (m *Store) GetSchedule(_ context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.schedules[scheduleID.String()]
	if !ok {
		return nil, conductor.ErrScheduleNotFound
	}
	cp := *e
	return &cp, nil
}

// ListSchedules returns all entries ordered by name.
func (m *Store) ListSchedules(_ context.Context) ([]*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*schedule.Entry, 0, len(m.schedules))
	for _, e := range m.schedules {
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].Name < result[k].Name
	})
	return result, nil
}

// UpdateSchedule persists changes to an entry.
func (m *Store) UpdateSchedule(_ context.Context, e *schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := e.ID.String()
	if _, ok := m.schedules[key]; !ok {
		return conductor.ErrScheduleNotFound
	}
	cp := *e
	cp.UpdatedAt = time.Now().UTC()
	m.schedules[key] = &cp
	return nil
}

// DeleteSchedule removes an entry by ID.
func (m *Store) DeleteSchedule(_ context.Context, scheduleID id.ScheduleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scheduleID.String()
	if _, ok := m.schedules[key]; !ok {
		return conductor.ErrScheduleNotFound
	}
	delete(m.schedules, key)
	return nil
}
