// Package config is the process-wide configuration struct, loaded from
// environment variables the way the teacher's bootstrap/config.go does:
// one struct, one field per setting, an explicit Load that validates
// required fields and applies defaults. No remote config source, no
// hot-reload: both are out of scope per spec.md's ambient-concerns framing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// CacheConfig configures one entity's cache (warehouse, namespace, tabular,
// role) per spec.md §4.2.
type CacheConfig struct {
	Enabled     bool
	Capacity    int
	TimeToLive  time.Duration
}

// Config is the full process configuration.
type Config struct {
	PostgresDSN string
	RedisAddr   string
	AMQPURL     string

	PaginationSizeDefault int
	PaginationSizeMax     int

	MaxNamespaceDepth int

	WarehouseCache CacheConfig
	NamespaceCache CacheConfig
	TabularCache   CacheConfig
	RoleCache      CacheConfig

	TaskPollInterval  time.Duration
	TaskStaleAfter    time.Duration
	TaskMaxAttempts   int
	TaskWorkerCount   int

	EventSendTimeout time.Duration
	LogCloudEvents   bool
}

// Load reads configuration from the environment, applying the defaults
// spec.md §4 names where it names one, and erroring out on a missing
// required value rather than silently defaulting a connection string.
func Load() (Config, error) {
	cfg := Config{
		PaginationSizeDefault: envInt("LAKEKEEPER_PAGINATION_SIZE_DEFAULT", 100),
		PaginationSizeMax:     envInt("LAKEKEEPER_PAGINATION_SIZE_MAX", 1000),
		MaxNamespaceDepth:     envInt("LAKEKEEPER_MAX_NAMESPACE_DEPTH", 250),

		WarehouseCache: CacheConfig{
			Enabled:    envBool("LAKEKEEPER_CACHE_WAREHOUSE_ENABLED", true),
			Capacity:   envInt("LAKEKEEPER_CACHE_WAREHOUSE_CAPACITY", 1000),
			TimeToLive: envDuration("LAKEKEEPER_CACHE_WAREHOUSE_TTL", 10*time.Minute),
		},
		NamespaceCache: CacheConfig{
			Enabled:    envBool("LAKEKEEPER_CACHE_NAMESPACE_ENABLED", true),
			Capacity:   envInt("LAKEKEEPER_CACHE_NAMESPACE_CAPACITY", 10000),
			TimeToLive: envDuration("LAKEKEEPER_CACHE_NAMESPACE_TTL", 5*time.Minute),
		},
		TabularCache: CacheConfig{
			Enabled:    envBool("LAKEKEEPER_CACHE_TABULAR_ENABLED", true),
			Capacity:   envInt("LAKEKEEPER_CACHE_TABULAR_CAPACITY", 50000),
			TimeToLive: envDuration("LAKEKEEPER_CACHE_TABULAR_TTL", 1*time.Minute),
		},
		RoleCache: CacheConfig{
			Enabled:    envBool("LAKEKEEPER_CACHE_ROLE_ENABLED", true),
			Capacity:   envInt("LAKEKEEPER_CACHE_ROLE_CAPACITY", 5000),
			TimeToLive: envDuration("LAKEKEEPER_CACHE_ROLE_TTL", 5*time.Minute),
		},

		TaskPollInterval: envDuration("LAKEKEEPER_TASK_POLL_INTERVAL", 1*time.Second),
		TaskStaleAfter:   envDuration("LAKEKEEPER_TASK_STALE_AFTER", 2*time.Minute),
		TaskMaxAttempts:  envInt("LAKEKEEPER_TASK_MAX_ATTEMPTS", 5),
		TaskWorkerCount:  envInt("LAKEKEEPER_TASK_WORKER_COUNT", 4),

		EventSendTimeout: envDuration("LAKEKEEPER_EVENT_SEND_TIMEOUT", 50*time.Millisecond),
		LogCloudEvents:   envBool("LAKEKEEPER_LOG_CLOUD_EVENTS", false),
	}

	cfg.PostgresDSN = os.Getenv("LAKEKEEPER_PG_DSN")
	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("config: LAKEKEEPER_PG_DSN is required")
	}

	cfg.RedisAddr = os.Getenv("LAKEKEEPER_REDIS_ADDR")
	cfg.AMQPURL = os.Getenv("LAKEKEEPER_AMQP_URL")

	return cfg, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}
