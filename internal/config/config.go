// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and ERAS_* env vars on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/robfig/cron/v3"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreNone     = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// GapThreshold is the largest gap in years tolerated inside one period.
	GapThreshold int `koanf:"gap_threshold"`

	// WorkerCount bounds the number of concurrently processed shards; 0 means one per CPU.
	WorkerCount int `koanf:"worker_count"`

	// ChunkSize is the number of records per annotation shard.
	ChunkSize int `koanf:"chunk_size"`

	// StoreDriver selects the period repository: sqlite, postgres or none.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is a file path for sqlite or a connection URL for postgres.
	StoreDSN string `koanf:"store_dsn"`

	// RedisAddr enables the period cache when non-empty.
	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`

	// CacheTTLSeconds bounds the lifetime of cached period tables.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// MemoryCacheEntries sizes the in-process cache used without Redis; 0 disables it.
	MemoryCacheEntries int `koanf:"memory_cache_entries"`

	// ReloadSchedule rebuilds the join index from the repository on a cron
	// schedule while serving, e.g. "@every 5m". Empty disables it.
	ReloadSchedule string `koanf:"reload_schedule"`

	// MedalPoints maps medal names to their efficiency weights.
	MedalPoints map[string]float64 `koanf:"medal_points"`

	// ParticipantMode counts participants as entries or distinct athletes.
	ParticipantMode string `koanf:"participant_mode"`

	// KeepZeroMedalRows reports labels and label-years without medals.
	KeepZeroMedalRows bool `koanf:"keep_zero_medal_rows"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		GapThreshold:       4,
		WorkerCount:        runtime.NumCPU(),
		ChunkSize:          10_000,
		StoreDriver:        StoreSQLite,
		StoreDSN:           "eras.db",
		RedisDB:            0,
		CacheTTLSeconds:    86_400,
		MemoryCacheEntries: 64,
		MedalPoints: map[string]float64{
			"Bronze": 1,
			"Silver": 2,
			"Gold":   3,
		},
		ParticipantMode: "entries",
	}
}

// Validate checks the semantic constraints of the configuration.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.GapThreshold < 0:
		return fmt.Errorf("%w: gap_threshold must not be negative", ErrInvalidConfig)
	case c.WorkerCount < 0:
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.MemoryCacheEntries < 0:
		return fmt.Errorf("%w: memory_cache_entries must not be negative", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	case StoreNone:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if c.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.ReloadSchedule); err != nil {
			return fmt.Errorf("%w: reload_schedule: %w", ErrInvalidConfig, err)
		}
	}

	switch c.ParticipantMode {
	case "entries", "athletes":
	default:
		return fmt.Errorf("%w: unknown participant_mode %q", ErrInvalidConfig, c.ParticipantMode)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
