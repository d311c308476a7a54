package conductor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the coordinator and its task queue.
type Config struct {
	// Concurrency is the maximum number of calls executed concurrently.
	Concurrency int `yaml:"concurrency"`

	// Queues is the list of queue lanes the task queue serves.
	Queues []string `yaml:"queues"`

	// PollInterval is how often idle task queue workers look for ready calls.
	PollInterval time.Duration `yaml:"poll_interval"`

	// WaitPollInterval is how often synchronous submissions check whether
	// their call has started.
	WaitPollInterval time.Duration `yaml:"wait_poll_interval"`

	// DefaultSyncTimeout bounds ExecuteCallSynchronously when the caller
	// passes a zero timeout. Zero means wait indefinitely.
	DefaultSyncTimeout time.Duration `yaml:"default_sync_timeout"`

	// Retention is how long terminal calls stay queryable before the task
	// queue reaper forgets them. Zero disables reaping.
	Retention time.Duration `yaml:"retention"`

	// ReapInterval is how often the reaper runs.
	ReapInterval time.Duration `yaml:"reap_interval"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// SnapshotCodec selects the encoding of persisted queued calls
	// ("json" or "msgpack").
	SnapshotCodec string `yaml:"snapshot_codec"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:      10,
		Queues:           []string{"default"},
		PollInterval:     1 * time.Second,
		WaitPollInterval: 500 * time.Millisecond,
		Retention:        1 * time.Hour,
		ReapInterval:     1 * time.Minute,
		ShutdownTimeout:  30 * time.Second,
		SnapshotCodec:    "json",
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("conductor: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("conductor: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports configuration values the coordinator cannot run with.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("conductor: concurrency must be positive, got %d", c.Concurrency)
	}
	if len(c.Queues) == 0 {
		return fmt.Errorf("conductor: at least one queue is required")
	}
	if c.PollInterval <= 0 || c.WaitPollInterval <= 0 {
		return fmt.Errorf("conductor: poll intervals must be positive")
	}
	switch c.SnapshotCodec {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("conductor: unknown snapshot codec %q", c.SnapshotCodec)
	}
	return nil
}
