package durable

import (
	"context"
	"encoding/json"
	"time"
)

// SchemaVersion is the layout version of persisted records. Opening a store
// written with a different version triggers the upgrade path, which keeps
// unexpired records where the old layout still decodes.
const SchemaVersion = "2"

// Record is the wire shape of one cache entry in the durable tier.
type Record struct {
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data"`
	DataType   string          `json:"dataType"`
	Namespace  string          `json:"namespace"`
	CreatedAt  int64           `json:"createdAt"`  // unix ms
	ExpiresAt  int64           `json:"expiresAt"`  // unix ms
	TTLMs      int64           `json:"ttl"`
	Priority   string          `json:"priority"`
	SizeBytes  int64           `json:"sizeBytes"`
	LastAccess int64           `json:"lastAccess"` // unix ms
}

// Expired reports whether the record's lifetime has passed. A record is live
// iff now < expiresAt.
func (r Record) Expired(now time.Time) bool {
	return now.UnixMilli() >= r.ExpiresAt
}

// DurableStore mirrors the memory cache into a durable tier. The memory tier
// is authoritative: every method here is best-effort and the cache swallows
// returned errors, surfacing them only through statistics and logs.
type DurableStore interface {
	// Initialize prepares the store (schema check/upgrade). The factory
	// bounds it with a timeout and downgrades to the degraded store on any
	// failure, so callers never block indefinitely nor special-case errors.
	Initialize(ctx context.Context) error

	// LoadAll returns all non-expired records. Expired records are skipped;
	// their deletion is lazy and best-effort.
	LoadAll(ctx context.Context) ([]Record, error)

	Put(ctx context.Context, record Record) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// Mode identifies the active backend ("bolt", "redis", "valkey",
	// "degraded").
	Mode() string

	HealthCheck(ctx context.Context) error
	Close() error
}
