package environment_variables

import (
	"os"
	"reflect"
	"strconv"
)

type EnvironmentVariable struct {
	LOG_LEVEL string

	// Durable store (best-effort mirror of the memory cache)
	DURABLE_STORE_TYPE      string // bolt | redis | valkey | none
	DURABLE_STORE_PATH      string
	DURABLE_INIT_TIMEOUT_MS int

	// Shared backends (redis / valkey)
	CACHE_URL      string
	REDIS_URL      string
	CACHE_PASSWORD string
	REDIS_PASSWORD string
	CACHE_DB       string
	REDIS_DB       string

	// Memory tier budgets
	CACHE_MAX_MEMORY_BYTES     int64
	CACHE_MAX_ENTRIES          int
	CACHE_MAX_ENTRY_SIZE_BYTES int64
	CACHE_STALE_AFTER_MS       int64
	CACHE_CLEANUP_INTERVAL_MS  int

	// Cross-instance sync bus
	SYNC_TRANSPORT        string // auto | pubsub | keyevent | none
	SYNC_POLL_INTERVAL_MS int

	// Warming engine
	WARMING_ENABLED                bool
	PREDICTIVE_WARMING_ENABLED     bool
	WARMING_BATCH_TIMEOUT_MS       int
	WARMING_BACKGROUND_INTERVAL_MS int
	WARMING_CONCURRENCY            int

	// Fetch collaborator
	DASHBOARD_API_BASE_URL string
}

// LoadFromEnv overrides fields from process environment variables of the
// same name. Fields without a matching variable keep their current value.
func (ev *EnvironmentVariable) LoadFromEnv() {
	v := reflect.ValueOf(ev).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		envValue := os.Getenv(field.Name)
		if envValue == "" {
			continue
		}
		switch v.Field(i).Kind() {
		case reflect.String:
			v.Field(i).SetString(envValue)
		case reflect.Int, reflect.Int64:
			if n, err := strconv.ParseInt(envValue, 10, 64); err == nil {
				v.Field(i).SetInt(n)
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(envValue); err == nil {
				v.Field(i).SetBool(b)
			}
		}
	}
}

// Singleton
var EnvironmentVariables = EnvironmentVariable{
	LOG_LEVEL: "info",

	DURABLE_STORE_TYPE:      "bolt",
	DURABLE_STORE_PATH:      "dashboard-cache.db",
	DURABLE_INIT_TIMEOUT_MS: 3000,

	CACHE_MAX_MEMORY_BYTES:     50 * 1024 * 1024,
	CACHE_MAX_ENTRIES:          500,
	CACHE_MAX_ENTRY_SIZE_BYTES: 5 * 1024 * 1024,
	CACHE_STALE_AFTER_MS:       24 * 60 * 60 * 1000,
	CACHE_CLEANUP_INTERVAL_MS:  60 * 1000,

	SYNC_TRANSPORT:        "auto",
	SYNC_POLL_INTERVAL_MS: 250,

	WARMING_ENABLED:                true,
	PREDICTIVE_WARMING_ENABLED:     true,
	WARMING_BATCH_TIMEOUT_MS:       10000,
	WARMING_BACKGROUND_INTERVAL_MS: 5 * 60 * 1000,
	WARMING_CONCURRENCY:            4,
}
