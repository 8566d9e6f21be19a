package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

// ValkeyStore is the alternative shared durable backend, layout-compatible
// with RedisStore.
type ValkeyStore struct {
	client valkey.Client
}

// parseValkeyURL parses a Valkey URL and returns address, password, database, and error
func parseValkeyURL(valkeyURL string) (address, password string, database int, err error) {
	// Default values
	database = -1 // -1 means no database specified

	// Handle plain address without protocol
	if !strings.Contains(valkeyURL, "://") {
		return valkeyURL, "", -1, nil
	}

	u, err := url.Parse(valkeyURL)
	if err != nil {
		return "", "", -1, fmt.Errorf("invalid URL format: %w", err)
	}

	address = u.Host
	if address == "" {
		return "", "", -1, fmt.Errorf("no host specified in URL")
	}

	if u.User != nil {
		password, _ = u.User.Password()
	}

	if u.Path != "" && u.Path != "/" {
		dbStr := strings.TrimPrefix(u.Path, "/")
		if dbStr != "" {
			if db, parseErr := strconv.Atoi(dbStr); parseErr == nil {
				database = db
			}
		}
	}

	return address, password, database, nil
}

// NewValkeyStore connects to Valkey using the cache URL configuration.
func NewValkeyStore() (*ValkeyStore, error) {
	valkeyURL := environment_variables.EnvironmentVariables.CACHE_URL
	if valkeyURL == "" {
		valkeyURL = "valkey://localhost:6379"
	}

	address, password, db, err := parseValkeyURL(valkeyURL)
	if err != nil {
		return nil, err
	}

	opts := valkey.ClientOption{
		InitAddress: []string{address},
	}
	if password != "" {
		opts.Password = password
	}
	if db != -1 {
		opts.SelectDB = db
	}

	// Override with environment variables if provided
	if environment_variables.EnvironmentVariables.CACHE_PASSWORD != "" {
		opts.Password = environment_variables.EnvironmentVariables.CACHE_PASSWORD
	}
	if environment_variables.EnvironmentVariables.CACHE_DB != "" {
		if db, err := strconv.Atoi(environment_variables.EnvironmentVariables.CACHE_DB); err == nil {
			opts.SelectDB = db
		}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	return &ValkeyStore{client: client}, nil
}

// Initialize checks the persisted schema version. Valkey deployments here are
// single-writer, so the upgrade rewrites the keyspace without a distributed
// lock.
func (v *ValkeyStore) Initialize(ctx context.Context) error {
	result := v.client.Do(ctx, v.client.B().Get().Key(schemaVersionKey).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return v.client.Do(ctx, v.client.B().Set().Key(schemaVersionKey).Value(SchemaVersion).Build()).Error()
		}
		return fmt.Errorf("read schema version: %w", err)
	}

	version, err := result.ToString()
	if err != nil {
		return fmt.Errorf("parse schema version: %w", err)
	}
	if version == SchemaVersion {
		return nil
	}

	if err := v.upgradeKeyspace(ctx); err != nil {
		return err
	}
	return v.client.Do(ctx, v.client.B().Set().Key(schemaVersionKey).Value(SchemaVersion).Build()).Error()
}

func (v *ValkeyStore) upgradeKeyspace(ctx context.Context) error {
	keys, err := v.entryKeys(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, key := range keys {
		result := v.client.Do(ctx, v.client.B().Get().Key(key).Build())
		if result.Error() != nil {
			continue
		}
		value, err := result.ToString()
		if err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil || record.Key == "" || record.Expired(now) {
			_ = v.client.Do(ctx, v.client.B().Unlink().Key(key).Build()).Error()
		}
	}
	return nil
}

func (v *ValkeyStore) entryKeys(ctx context.Context) ([]string, error) {
	result := v.client.Do(ctx, v.client.B().Keys().Pattern(entryKeyPattern).Build())
	if result.Error() != nil {
		return nil, fmt.Errorf("list entry keys: %w", result.Error())
	}
	keys, err := result.AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("parse entry keys: %w", err)
	}
	return keys, nil
}

// LoadAll returns all non-expired records in the shared keyspace.
func (v *ValkeyStore) LoadAll(ctx context.Context) ([]Record, error) {
	keys, err := v.entryKeys(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var records []Record
	for _, key := range keys {
		result := v.client.Do(ctx, v.client.B().Get().Key(key).Build())
		if result.Error() != nil {
			continue // expired between KEYS and GET
		}
		value, err := result.ToString()
		if err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			_ = v.client.Do(ctx, v.client.B().Unlink().Key(key).Build()).Error()
			continue
		}
		if record.Expired(now) {
			_ = v.client.Do(ctx, v.client.B().Unlink().Key(key).Build()).Error()
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Put persists one record with the remaining entry lifetime as the key TTL.
func (v *ValkeyStore) Put(ctx context.Context, record Record) error {
	if record.Key == "" {
		return fmt.Errorf("record key is required")
	}
	remaining := time.Until(time.UnixMilli(record.ExpiresAt))
	if remaining <= 0 {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	seconds := int64(remaining.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return v.client.Do(ctx,
		v.client.B().Set().Key(entryKeyPrefix+record.Key).Value(string(payload)).ExSeconds(seconds).Build(),
	).Error()
}

// Delete removes a record asynchronously (non-blocking).
func (v *ValkeyStore) Delete(ctx context.Context, key string) error {
	return v.client.Do(ctx, v.client.B().Unlink().Key(entryKeyPrefix+key).Build()).Error()
}

// Clear removes every entry key.
func (v *ValkeyStore) Clear(ctx context.Context) error {
	keys, err := v.entryKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := v.client.Do(ctx, v.client.B().Unlink().Key(keys...).Build()).Error(); err != nil {
			return fmt.Errorf("unlink entry keys: %w", err)
		}
	}
	return nil
}

// Mode reports the valkey backend
func (v *ValkeyStore) Mode() string {
	return "valkey"
}

// HealthCheck verifies Valkey connectivity
func (v *ValkeyStore) HealthCheck(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close closes the Valkey connection
func (v *ValkeyStore) Close() error {
	v.client.Close()
	return nil
}
