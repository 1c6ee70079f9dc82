// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and COHORT_ env vars over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory run queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of concurrent solves.
	WorkerCount int `koanf:"worker_count"`

	// MaxRuns caps how many run records are kept in memory.
	MaxRuns int `koanf:"max_runs"`

	// DatabaseURL selects the Postgres registration store. Empty uses the
	// in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr enables the redis-backed per-semester guard.
	RedisAddr string `koanf:"redis_addr"`

	// RedisLockTTLSeconds bounds how long a crashed run blocks its semester.
	RedisLockTTLSeconds int `koanf:"redis_lock_ttl_seconds"`

	// SolverTimeLimitSeconds caps a single solve.
	SolverTimeLimitSeconds int `koanf:"solver_time_limit_seconds"`

	// Objective weights.
	WeightPreference int64 `koanf:"weight_preference"`
	WeightCohesion   int64 `koanf:"weight_cohesion"`
	WeightExperience int64 `koanf:"weight_experience"`

	// MatchThreshold is the minimum partner name similarity (exclusive).
	MatchThreshold float64 `koanf:"match_threshold"`

	// ShuffleSeed fixes the project shuffle. Zero seeds from the clock.
	ShuffleSeed int64 `koanf:"shuffle_seed"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		QueueSize:              64,
		WorkerCount:            runtime.NumCPU(),
		MaxRuns:                1000,
		RedisLockTTLSeconds:    600,
		SolverTimeLimitSeconds: 60,
		WeightPreference:       1,
		WeightCohesion:         1,
		WeightExperience:       10,
		MatchThreshold:         0.5,
	}
}

// SolverTimeLimit returns the solve budget as a duration.
func (c *Config) SolverTimeLimit() time.Duration {
	return time.Duration(c.SolverTimeLimitSeconds) * time.Second
}

// RedisLockTTL returns the guard key lifetime. It never falls below the time
// a run can wait behind a full queue plus its own solve.
func (c *Config) RedisLockTTL() time.Duration {
	ttl := time.Duration(c.RedisLockTTLSeconds) * time.Second
	workers := max(c.WorkerCount, 1)
	waves := (c.QueueSize+workers-1)/workers + 1
	if worst := time.Duration(waves) * c.SolverTimeLimit(); worst > ttl {
		return worst
	}
	return ttl
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.SolverTimeLimitSeconds <= 0:
		return fmt.Errorf("%w: solver_time_limit_seconds must be positive", ErrInvalidConfig)
	case c.RedisLockTTLSeconds <= 0:
		return fmt.Errorf("%w: redis_lock_ttl_seconds must be positive", ErrInvalidConfig)
	case c.WeightPreference < 0 || c.WeightCohesion < 0 || c.WeightExperience < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case c.MatchThreshold < 0 || c.MatchThreshold >= 1:
		return fmt.Errorf("%w: match_threshold must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}
