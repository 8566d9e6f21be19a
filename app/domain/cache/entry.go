package cache

import (
	"encoding/json"
	"time"
)

// Priority orders entries for eviction: lower priorities are evicted first.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParsePriority maps a persisted priority name back to its rank. Unknown
// names degrade to low so foreign records stay evictable.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Entry is one cached value plus its lifecycle metadata. Entries are owned
// exclusively by the CacheService and only mutated through its methods.
type Entry struct {
	Key        string
	Data       json.RawMessage
	DataType   string
	Namespace  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	TTL        time.Duration
	Priority   Priority
	SizeBytes  int64
	LastAccess time.Time
}

// Expired reports whether the entry's lifetime has passed. An entry is live
// iff now < ExpiresAt.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
