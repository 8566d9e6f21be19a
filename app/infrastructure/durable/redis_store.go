package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

const (
	entryKeyPrefix   = "dce:v1:entry:"
	entryKeyPattern  = entryKeyPrefix + "*"
	schemaVersionKey = "dce:v1:meta:schema_version"
	schemaLockKey    = "dce:v1:meta:schema_lock"
)

// RedisStore is the shared durable backend. Multiple engine instances mirror
// into the same keyspace with last-writer-wins semantics; no locking guards
// entry keys.
type RedisStore struct {
	client *redis.Client
	rs     *redsync.Redsync
}

// NewRedisStore connects to Redis using the cache URL configuration.
func NewRedisStore() (*RedisStore, error) {
	redisURL := environment_variables.EnvironmentVariables.CACHE_URL
	if redisURL == "" {
		redisURL = environment_variables.EnvironmentVariables.REDIS_URL
	}
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	// Override with environment variables if provided
	if environment_variables.EnvironmentVariables.CACHE_PASSWORD != "" {
		opts.Password = environment_variables.EnvironmentVariables.CACHE_PASSWORD
	} else if environment_variables.EnvironmentVariables.REDIS_PASSWORD != "" {
		opts.Password = environment_variables.EnvironmentVariables.REDIS_PASSWORD
	}
	if environment_variables.EnvironmentVariables.CACHE_DB != "" {
		if db, err := strconv.Atoi(environment_variables.EnvironmentVariables.CACHE_DB); err == nil {
			opts.DB = db
		}
	} else if environment_variables.EnvironmentVariables.REDIS_DB != "" {
		if db, err := strconv.Atoi(environment_variables.EnvironmentVariables.REDIS_DB); err == nil {
			opts.DB = db
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		rs:     redsync.New(redsyncgoredis.NewPool(client)),
	}, nil
}

// Initialize checks the persisted schema version and upgrades the keyspace
// when it differs. The upgrade runs under a distributed mutex so exactly one
// instance rewrites the shared records.
func (r *RedisStore) Initialize(ctx context.Context) error {
	version, err := r.client.Get(ctx, schemaVersionKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaVersionKey, SchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == SchemaVersion {
		return nil
	}

	mutex := r.rs.NewMutex(schemaLockKey, redsync.WithExpiry(30*time.Second))
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	// Another instance may have finished the upgrade while we waited.
	version, err = r.client.Get(ctx, schemaVersionKey).Result()
	if err == nil && version == SchemaVersion {
		return nil
	}

	if err := r.upgradeKeyspace(ctx); err != nil {
		return err
	}
	logger.GetLogger().Infof("durable store upgraded from schema %s to %s", version, SchemaVersion)
	return r.client.Set(ctx, schemaVersionKey, SchemaVersion, 0).Err()
}

// upgradeKeyspace rewrites entry keys, keeping records that still decode and
// have not expired.
func (r *RedisStore) upgradeKeyspace(ctx context.Context) error {
	now := time.Now()
	return r.scanEntries(ctx, func(key, value string) error {
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil || record.Key == "" || record.Expired(now) {
			return r.client.Unlink(ctx, key).Err()
		}
		remaining := time.Until(time.UnixMilli(record.ExpiresAt))
		if remaining <= 0 {
			return r.client.Unlink(ctx, key).Err()
		}
		return r.client.Set(ctx, key, value, remaining).Err()
	})
}

func (r *RedisStore) scanEntries(ctx context.Context, visit func(key, value string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, entryKeyPattern, 1000).Result()
		if err != nil {
			return fmt.Errorf("scan entry keys: %w", err)
		}
		for _, key := range keys {
			value, err := r.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue // expired between scan and get
			}
			if err != nil {
				return fmt.Errorf("get entry %s: %w", key, err)
			}
			if err := visit(key, value); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// LoadAll returns all non-expired records in the shared keyspace.
func (r *RedisStore) LoadAll(ctx context.Context) ([]Record, error) {
	now := time.Now()
	var records []Record
	err := r.scanEntries(ctx, func(key, value string) error {
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			// Foreign or corrupt payload; drop lazily.
			_ = r.client.Unlink(ctx, key).Err()
			return nil
		}
		if record.Expired(now) {
			_ = r.client.Unlink(ctx, key).Err()
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Put persists one record with the remaining entry lifetime as the key TTL.
func (r *RedisStore) Put(ctx context.Context, record Record) error {
	if record.Key == "" {
		return fmt.Errorf("record key is required")
	}
	remaining := time.Until(time.UnixMilli(record.ExpiresAt))
	if remaining <= 0 {
		return nil // already expired, nothing worth mirroring
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return r.client.Set(ctx, entryKeyPrefix+record.Key, payload, remaining).Err()
}

// Delete removes a record asynchronously (non-blocking).
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Unlink(ctx, entryKeyPrefix+key).Err()
}

// Clear removes every entry key via SCAN + pipelined UNLINK.
func (r *RedisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, entryKeyPattern, 1000).Result()
		if err != nil {
			return fmt.Errorf("scan entry keys: %w", err)
		}
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Unlink(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("unlink entry keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Mode reports the redis backend
func (r *RedisStore) Mode() string {
	return "redis"
}

// HealthCheck verifies Redis connectivity
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
