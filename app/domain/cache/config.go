package cache

import (
	"time"

	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

// DataTypeConfig fixes lifetime and eviction weight per data type.
type DataTypeConfig struct {
	TTL      time.Duration
	Priority Priority
}

// defaultDataTypeConfig applies to unknown data types so callers degrade
// gracefully instead of erroring.
var defaultDataTypeConfig = DataTypeConfig{TTL: 5 * time.Minute, Priority: PriorityLow}

func defaultDataTypeTable() map[string]DataTypeConfig {
	return map[string]DataTypeConfig{
		"tasks":    {TTL: time.Minute, Priority: PriorityHigh},
		"git":      {TTL: 30 * time.Second, Priority: PriorityMedium},
		"ide":      {TTL: 5 * time.Minute, Priority: PriorityHigh},
		"session":  {TTL: 10 * time.Minute, Priority: PriorityHigh},
		"analysis": {TTL: 10 * time.Minute, Priority: PriorityMedium},
		"chat":     {TTL: 2 * time.Minute, Priority: PriorityMedium},
		"project":  {TTL: 10 * time.Minute, Priority: PriorityHigh},
		"refresh":  {TTL: time.Minute, Priority: PriorityMedium},
		"bundle":   {TTL: time.Minute, Priority: PriorityHigh},
	}
}

// Config carries the memory-tier budgets and maintenance cadence.
type Config struct {
	MaxMemoryBytes    int64
	MaxEntries        int
	MaxEntrySizeBytes int64
	StaleAfter        time.Duration
	CleanupInterval   time.Duration
	DataTypes         map[string]DataTypeConfig
}

func DefaultConfig() Config {
	return Config{
		MaxMemoryBytes:    50 * 1024 * 1024,
		MaxEntries:        500,
		MaxEntrySizeBytes: 5 * 1024 * 1024,
		StaleAfter:        24 * time.Hour,
		CleanupInterval:   time.Minute,
		DataTypes:         defaultDataTypeTable(),
	}
}

func ConfigFromEnv() Config {
	env := environment_variables.EnvironmentVariables
	cfg := DefaultConfig()
	if env.CACHE_MAX_MEMORY_BYTES > 0 {
		cfg.MaxMemoryBytes = env.CACHE_MAX_MEMORY_BYTES
	}
	if env.CACHE_MAX_ENTRIES > 0 {
		cfg.MaxEntries = env.CACHE_MAX_ENTRIES
	}
	if env.CACHE_MAX_ENTRY_SIZE_BYTES > 0 {
		cfg.MaxEntrySizeBytes = env.CACHE_MAX_ENTRY_SIZE_BYTES
	}
	if env.CACHE_STALE_AFTER_MS > 0 {
		cfg.StaleAfter = time.Duration(env.CACHE_STALE_AFTER_MS) * time.Millisecond
	}
	if env.CACHE_CLEANUP_INTERVAL_MS > 0 {
		cfg.CleanupInterval = time.Duration(env.CACHE_CLEANUP_INTERVAL_MS) * time.Millisecond
	}
	return cfg
}
