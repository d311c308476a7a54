// Package queue limits how fast and how many calls of a task queue lane may
// run at once. Lanes without a configuration are unlimited.
package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-lane rate limiting and concurrency.
type Config struct {
	// Name is the lane identifier (matches call.Request.Queue).
	Name string `yaml:"name"`

	// MaxConcurrency limits how many calls from this lane may run at the
	// same time. Zero means no lane-specific limit.
	MaxConcurrency int `yaml:"max_concurrency"`

	// RateLimit is the sustained number of call starts per second. Zero
	// disables rate limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the token-bucket burst. Defaults to 1 when RateLimit is
	// set.
	RateBurst int `yaml:"rate_burst"`
}

type laneState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

func newLaneState(cfg Config) *laneState {
	ls := &laneState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ls.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ls
}

// Manager tracks lane limits. It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	lanes map[string]*laneState
}

// NewManager creates a Manager for the given lane configurations.
func NewManager(configs ...Config) *Manager {
	m := &Manager{lanes: make(map[string]*laneState, len(configs))}
	for _, cfg := range configs {
		m.lanes[cfg.Name] = newLaneState(cfg)
	}
	return m
}

// Acquire reports whether a call from lane may start now. On true the
// caller MUST call Release when the call stops running.
func (m *Manager) Acquire(lane string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ls := m.lanes[lane]
	if ls == nil {
		return true
	}
	if ls.config.MaxConcurrency > 0 && ls.active >= ls.config.MaxConcurrency {
		return false
	}
	if ls.limiter != nil && !ls.limiter.Allow() {
		return false
	}
	ls.active++
	return true
}

// Release frees the slot taken by Acquire.
func (m *Manager) Release(lane string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ls := m.lanes[lane]; ls != nil && ls.active > 0 {
		ls.active--
	}
}

// Configure replaces (or adds) a lane configuration, keeping its running
// count.
func (m *Manager) Configure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ls := newLaneState(cfg)
	if existing := m.lanes[cfg.Name]; existing != nil {
		ls.active = existing.active
	}
	m.lanes[cfg.Name] = ls
}

// Active returns the number of running calls counted for lane.
func (m *Manager) Active(lane string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ls := m.lanes[lane]; ls != nil {
		return ls.active
	}
	return 0
}
