package cache

import (
	"sort"
	"time"

	"vantage.ai/dashboard-cache-engine/app/utils/functional"
)

// counters are mutated under the service mutex only.
type counters struct {
	hits            uint64
	misses          uint64
	sets            uint64
	deletes         uint64
	evictions       uint64
	expiredRemovals uint64
	staleRemovals   uint64
	rejectedSets    uint64
	durableErrors   uint64
	getNanosTotal   int64
}

// StatsSnapshot is a point-in-time view of cache health.
type StatsSnapshot struct {
	Hits                uint64        `json:"hits"`
	Misses              uint64        `json:"misses"`
	Sets                uint64        `json:"sets"`
	Deletes             uint64        `json:"deletes"`
	Evictions           uint64        `json:"evictions"`
	ExpiredRemovals     uint64        `json:"expiredRemovals"`
	StaleRemovals       uint64        `json:"staleRemovals"`
	RejectedSets        uint64        `json:"rejectedSets"`
	DurableErrors       uint64        `json:"durableErrors"`
	HitRate             float64       `json:"hitRate"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	MemoryCacheEntries  int           `json:"memoryCacheEntries"`
	CurrentMemoryBytes  int64         `json:"currentMemoryBytes"`
	Namespaces          []string      `json:"namespaces"`
}

func (s *CacheService) snapshotLocked() StatsSnapshot {
	snap := StatsSnapshot{
		Hits:               s.stats.hits,
		Misses:             s.stats.misses,
		Sets:               s.stats.sets,
		Deletes:            s.stats.deletes,
		Evictions:          s.stats.evictions,
		ExpiredRemovals:    s.stats.expiredRemovals,
		StaleRemovals:      s.stats.staleRemovals,
		RejectedSets:       s.stats.rejectedSets,
		DurableErrors:      s.stats.durableErrors,
		MemoryCacheEntries: len(s.entries),
		CurrentMemoryBytes: s.memoryBytes,
		Namespaces:         functional.Keys(s.nsIndex),
	}
	sort.Strings(snap.Namespaces)

	requests := s.stats.hits + s.stats.misses
	if requests > 0 {
		// Defined as 0 when no requests yet.
		snap.HitRate = float64(s.stats.hits) / float64(requests)
		snap.AverageResponseTime = time.Duration(s.stats.getNanosTotal / int64(requests))
	}
	return snap
}
