// Package config loads the crewpulse service configuration.
//
// Configuration is a single TOML file. The agent roster is static: agents
// are declared here at deploy time and the service never adds or removes
// them during a run.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Timing constants shared across the service. These are deliberately not
// configurable per agent: every agent is classified against the same clock
// thresholds so the fleet view stays comparable.
const (
	// ActiveThreshold is the maximum activity age for an agent to count
	// as active.
	ActiveThreshold = 10 * time.Minute

	// IdleThreshold is the activity age at which an agent is reported
	// offline rather than idle.
	IdleThreshold = 30 * time.Minute

	// StoppedThreshold is the activity age past which an agent is
	// reported as stopped with no elapsed-minutes detail.
	StoppedThreshold = 60 * time.Minute

	// GatewayProbeTimeout bounds the execution-backend health check.
	GatewayProbeTimeout = 3 * time.Second

	// FallbackArmDelay is how long a live channel may stay in Connecting
	// before fallback polling starts.
	FallbackArmDelay = 3 * time.Second

	// FallbackPollInterval is the re-fetch cadence once fallback polling
	// has been promoted.
	FallbackPollInterval = 30 * time.Second
)

// Agent describes one monitored agent. Identity only; all mutable state
// lives in the published snapshots.
type Agent struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Role        string `toml:"role"`
	Coordinator bool   `toml:"coordinator"`
}

// Config is the full service configuration.
type Config struct {
	// Agents is the fixed roster of monitored agents.
	Agents []Agent `toml:"agents"`

	Gateway GatewayConfig `toml:"gateway"`
	Stores  StoresConfig  `toml:"stores"`
	Cycle   CycleConfig   `toml:"cycle"`
	Server  ServerConfig  `toml:"server"`
	Live    LiveConfig    `toml:"live"`
}

// GatewayConfig points at the execution backend's health endpoint.
type GatewayConfig struct {
	// HealthURL is probed each cycle. Empty means the probe reports
	// no data and the fleet gate stays open.
	HealthURL string `toml:"health_url"`
}

// StoresConfig locates the signal source backing stores.
type StoresConfig struct {
	// ActivityFile is the shared keyed session registry (JSON).
	ActivityFile string `toml:"activity_file"`

	// TasksFile is the shared task run registry (JSON).
	TasksFile string `toml:"tasks_file"`

	// StatsDB is the SQLite database holding task completion records.
	// Empty disables completion stats (adapters report no data).
	StatsDB string `toml:"stats_db"`
}

// CycleConfig controls the snapshot orchestrator.
type CycleConfig struct {
	// Interval between snapshot recomputations.
	Interval duration `toml:"interval"`
}

// ServerConfig controls the HTTP read endpoint.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LiveConfig controls the push feed used by live channels.
type LiveConfig struct {
	// FeedURL is the websocket endpoint delivering per-subject events.
	FeedURL string `toml:"feed_url"`
}

// duration wraps time.Duration so TOML values can be written as "15s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Value returns the wrapped duration.
func (d duration) Value() time.Duration { return time.Duration(d) }

// Default returns a config with sensible defaults and an empty roster.
func Default() *Config {
	return &Config{
		Cycle:  CycleConfig{Interval: duration(15 * time.Second)},
		Server: ServerConfig{Addr: "127.0.0.1:8170"},
	}
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks roster integrity: non-empty, unique IDs, at most one
// coordinator.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("no agents configured")
	}
	seen := make(map[string]bool, len(c.Agents))
	coordinators := 0
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent %d: missing id", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Coordinator {
			coordinators++
		}
	}
	if coordinators > 1 {
		return fmt.Errorf("%d coordinators configured, want at most 1", coordinators)
	}
	if c.Cycle.Interval.Value() <= 0 {
		return fmt.Errorf("cycle interval must be positive")
	}
	return nil
}

// Coordinator returns the coordinator agent, or nil if none is configured.
func (c *Config) Coordinator() *Agent {
	for i := range c.Agents {
		if c.Agents[i].Coordinator {
			return &c.Agents[i]
		}
	}
	return nil
}
