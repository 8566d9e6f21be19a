package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/durable"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

const durableOpTimeout = 2 * time.Second

// CacheService is the two-tier cache. The memory tier is authoritative and
// synchronous; the durable tier is a best-effort mirror whose failures are
// swallowed and surfaced only through statistics and logs.
type CacheService struct {
	mu          sync.Mutex
	cfg         Config
	entries     map[string]*Entry
	nsIndex     map[string]map[string]struct{}
	memoryBytes int64
	stats       counters

	store durable.DurableStore
	log   *logrus.Logger
	now   func() time.Time

	maintenanceStop chan struct{}
}

// NewCacheService creates a cache configured from the environment.
func NewCacheService(store durable.DurableStore) *CacheService {
	return NewCacheServiceWithConfig(ConfigFromEnv(), store)
}

func NewCacheServiceWithConfig(cfg Config, store durable.DurableStore) *CacheService {
	if cfg.DataTypes == nil {
		cfg.DataTypes = defaultDataTypeTable()
	}
	if store == nil {
		store = &durable.NoOpStore{}
	}
	return &CacheService{
		cfg:     cfg,
		entries: make(map[string]*Entry),
		nsIndex: make(map[string]map[string]struct{}),
		store:   store,
		log:     logger.GetLogger(),
		now:     time.Now,
	}
}

func (s *CacheService) dataTypeConfig(dataType string) DataTypeConfig {
	if dtc, ok := s.cfg.DataTypes[dataType]; ok {
		return dtc
	}
	return defaultDataTypeConfig
}

// Set stores data under key with TTL and priority drawn from the data-type
// table. It returns false, without error, when the entry cannot be admitted
// (unserializable or larger than the per-entry budget). Existing entries are
// evicted by ascending priority, then least recent access, until the new
// entry fits the memory budget.
func (s *CacheService) Set(key string, data any, dataType, namespace string) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Warnf("cache: unserializable value for %s: %v", key, err)
		s.mu.Lock()
		s.stats.rejectedSets++
		s.mu.Unlock()
		return false
	}

	size := int64(len(payload))
	if size > s.cfg.MaxEntrySizeBytes || size > s.cfg.MaxMemoryBytes {
		s.mu.Lock()
		s.stats.rejectedSets++
		s.mu.Unlock()
		return false
	}

	now := s.now()
	dtc := s.dataTypeConfig(dataType)
	entry := &Entry{
		Key:        key,
		Data:       payload,
		DataType:   dataType,
		Namespace:  namespace,
		CreatedAt:  now,
		ExpiresAt:  now.Add(dtc.TTL),
		TTL:        dtc.TTL,
		Priority:   dtc.Priority,
		SizeBytes:  size,
		LastAccess: now,
	}

	var evicted []string
	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		s.removeLocked(old) // replacement, not a delete
	}
	for s.memoryBytes+size > s.cfg.MaxMemoryBytes && len(s.entries) > 0 {
		victim := s.evictionVictimLocked()
		s.removeLocked(victim)
		s.stats.evictions++
		evicted = append(evicted, victim.Key)
	}
	if len(s.entries) >= s.cfg.MaxEntries {
		if victim := s.oldestByAccessLocked(); victim != nil {
			s.removeLocked(victim)
			s.stats.evictions++
			evicted = append(evicted, victim.Key)
		}
	}
	s.entries[key] = entry
	s.indexAddLocked(entry)
	s.memoryBytes += size
	s.stats.sets++
	s.mu.Unlock()

	for _, k := range evicted {
		s.mirrorDelete(k)
	}
	s.mirrorPut(entry)
	return true
}

// Get returns the stored data by value, or nil/false on a miss. Expired
// entries found during lookup are removed immediately (lazy expiry) and count
// as misses.
func (s *CacheService) Get(key string) (any, bool) {
	start := time.Now()

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.stats.misses++
		s.stats.getNanosTotal += time.Since(start).Nanoseconds()
		s.mu.Unlock()
		return nil, false
	}
	if entry.Expired(s.now()) {
		s.removeLocked(entry)
		s.stats.expiredRemovals++
		s.stats.misses++
		s.stats.getNanosTotal += time.Since(start).Nanoseconds()
		s.mu.Unlock()
		s.mirrorDelete(key)
		return nil, false
	}
	entry.LastAccess = s.now()
	s.stats.hits++
	payload := entry.Data
	s.stats.getNanosTotal += time.Since(start).Nanoseconds()
	s.mu.Unlock()

	// Decode a fresh value so callers can never alias cached state.
	var out any
	if err := json.Unmarshal(payload, &out); err != nil {
		s.log.Errorf("cache: corrupt payload for %s: %v", key, err)
		return nil, false
	}
	return out, true
}

// Delete removes the entry from memory, the namespace index, and (best
// effort) the durable tier. It reports whether a live entry existed; deleting
// an absent key is a no-op.
func (s *CacheService) Delete(key string) bool {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok {
		s.removeLocked(entry)
		s.stats.deletes++
	}
	s.mu.Unlock()

	if ok {
		s.mirrorDelete(key)
	}
	return ok
}

// InvalidateByNamespace deletes every key indexed under the namespace,
// optionally narrowed to keys containing identifierSuffix. Entries of other
// namespaces are untouched.
func (s *CacheService) InvalidateByNamespace(namespace string, identifierSuffix ...string) {
	suffix := ""
	if len(identifierSuffix) > 0 {
		suffix = identifierSuffix[0]
	}

	var removed []string
	s.mu.Lock()
	for key := range s.nsIndex[namespace] {
		if suffix != "" && !strings.Contains(key, suffix) {
			continue
		}
		if entry, ok := s.entries[key]; ok {
			s.removeLocked(entry)
			s.stats.deletes++
			removed = append(removed, key)
		}
	}
	s.mu.Unlock()

	for _, key := range removed {
		s.mirrorDelete(key)
	}
}

// Clear drops the whole memory tier and asks the durable tier to do the same.
func (s *CacheService) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.nsIndex = make(map[string]map[string]struct{})
	s.memoryBytes = 0
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), durableOpTimeout)
	defer cancel()
	if err := s.store.Clear(ctx); err != nil {
		s.noteDurableError("clear", err)
	}
}

// GetStats returns a snapshot of cache statistics. hitRate is 0 until the
// first request.
func (s *CacheService) GetStats() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CleanupExpired removes every expired entry and returns how many were
// dropped. It runs from the maintenance timer independently of get/set
// traffic.
func (s *CacheService) CleanupExpired() int {
	now := s.now()

	var removed []string
	s.mu.Lock()
	for _, entry := range s.entries {
		if entry.Expired(now) {
			s.removeLocked(entry)
			s.stats.expiredRemovals++
			removed = append(removed, entry.Key)
		}
	}
	s.mu.Unlock()

	for _, key := range removed {
		s.mirrorDelete(key)
	}
	return len(removed)
}

// CleanupStale removes live entries unaccessed for longer than the staleness
// threshold.
func (s *CacheService) CleanupStale() int {
	cutoff := s.now().Add(-s.cfg.StaleAfter)

	var removed []string
	s.mu.Lock()
	for _, entry := range s.entries {
		if entry.LastAccess.Before(cutoff) {
			s.removeLocked(entry)
			s.stats.staleRemovals++
			removed = append(removed, entry.Key)
		}
	}
	s.mu.Unlock()

	for _, key := range removed {
		s.mirrorDelete(key)
	}
	return len(removed)
}

// StartMaintenance begins the periodic expiry/staleness sweep. Calling it
// while running is a no-op.
func (s *CacheService) StartMaintenance() {
	s.mu.Lock()
	if s.maintenanceStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.maintenanceStop = stop
	interval := s.cfg.CleanupInterval
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.CleanupExpired()
				s.CleanupStale()
			case <-stop:
				return
			}
		}
	}()
}

// StopMaintenance halts the sweep timer. Stopping an idle service is a no-op.
func (s *CacheService) StopMaintenance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maintenanceStop == nil {
		return
	}
	close(s.maintenanceStop)
	s.maintenanceStop = nil
}

// RestoreFromDurable loads surviving records from the durable tier into the
// memory tier, honoring the same admission budgets as Set. It returns how
// many entries were restored.
func (s *CacheService) RestoreFromDurable(ctx context.Context) int {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		s.noteDurableError("loadAll", err)
		return 0
	}

	now := s.now()
	restored := 0
	s.mu.Lock()
	for _, record := range records {
		entry := entryFromRecord(record)
		if entry.Expired(now) || entry.SizeBytes > s.cfg.MaxEntrySizeBytes {
			continue
		}
		if len(s.entries) >= s.cfg.MaxEntries || s.memoryBytes+entry.SizeBytes > s.cfg.MaxMemoryBytes {
			continue
		}
		if _, exists := s.entries[entry.Key]; exists {
			continue
		}
		s.entries[entry.Key] = entry
		s.indexAddLocked(entry)
		s.memoryBytes += entry.SizeBytes
		restored++
	}
	s.mu.Unlock()

	if restored > 0 {
		s.log.Infof("cache: restored %d entries from durable store (%s)", restored, s.store.Mode())
	}
	return restored
}

// BindEvents subscribes the cache's selective-invalidation handlers to the
// domain event bus.
func (s *CacheService) BindEvents(bus *events.EventBus) {
	invalidations := map[string][]string{
		events.EventIDESwitch:        {"ide", "tasks", "git", "bundle"},
		events.EventProjectChange:    {"project", "tasks", "bundle"},
		events.EventAnalysisComplete: {"analysis"},
		events.EventChatNew:          {"chat"},
	}
	for event, namespaces := range invalidations {
		namespaces := namespaces
		bus.On(event, func(p events.Payload) {
			for _, ns := range namespaces {
				if p.ScopeID != "" {
					s.InvalidateByNamespace(ns, p.ScopeID)
				} else {
					s.InvalidateByNamespace(ns)
				}
			}
		})
	}
}

// --- internals ---

// removeLocked unlinks the entry from the memory tier and namespace index.
// Callers hold s.mu and handle statistics and durable mirroring themselves.
func (s *CacheService) removeLocked(entry *Entry) {
	if _, ok := s.entries[entry.Key]; !ok {
		return
	}
	delete(s.entries, entry.Key)
	s.memoryBytes -= entry.SizeBytes
	if keys, ok := s.nsIndex[entry.Namespace]; ok {
		delete(keys, entry.Key)
		if len(keys) == 0 {
			delete(s.nsIndex, entry.Namespace)
		}
	}
}

func (s *CacheService) indexAddLocked(entry *Entry) {
	keys, ok := s.nsIndex[entry.Namespace]
	if !ok {
		keys = make(map[string]struct{})
		s.nsIndex[entry.Namespace] = keys
	}
	keys[entry.Key] = struct{}{}
}

// evictionVictimLocked picks the entry with the lowest priority, breaking
// ties by least recent access.
func (s *CacheService) evictionVictimLocked() *Entry {
	var victim *Entry
	for _, entry := range s.entries {
		if victim == nil ||
			entry.Priority < victim.Priority ||
			(entry.Priority == victim.Priority && entry.LastAccess.Before(victim.LastAccess)) {
			victim = entry
		}
	}
	return victim
}

// oldestByAccessLocked picks the least recently accessed entry regardless of
// priority (entry-count cap eviction).
func (s *CacheService) oldestByAccessLocked() *Entry {
	var victim *Entry
	for _, entry := range s.entries {
		if victim == nil || entry.LastAccess.Before(victim.LastAccess) {
			victim = entry
		}
	}
	return victim
}

func (s *CacheService) mirrorPut(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), durableOpTimeout)
	defer cancel()
	if err := s.store.Put(ctx, recordFromEntry(entry)); err != nil {
		s.noteDurableError("put", err)
	}
}

func (s *CacheService) mirrorDelete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), durableOpTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, key); err != nil {
		s.noteDurableError("delete", err)
	}
}

func (s *CacheService) noteDurableError(op string, err error) {
	s.mu.Lock()
	s.stats.durableErrors++
	s.mu.Unlock()
	s.log.Warnf("cache: durable %s failed: %v", op, err)
}

func recordFromEntry(e *Entry) durable.Record {
	return durable.Record{
		Key:        e.Key,
		Data:       e.Data,
		DataType:   e.DataType,
		Namespace:  e.Namespace,
		CreatedAt:  e.CreatedAt.UnixMilli(),
		ExpiresAt:  e.ExpiresAt.UnixMilli(),
		TTLMs:      e.TTL.Milliseconds(),
		Priority:   e.Priority.String(),
		SizeBytes:  e.SizeBytes,
		LastAccess: e.LastAccess.UnixMilli(),
	}
}

func entryFromRecord(r durable.Record) *Entry {
	return &Entry{
		Key:        r.Key,
		Data:       r.Data,
		DataType:   r.DataType,
		Namespace:  r.Namespace,
		CreatedAt:  time.UnixMilli(r.CreatedAt),
		ExpiresAt:  time.UnixMilli(r.ExpiresAt),
		TTL:        time.Duration(r.TTLMs) * time.Millisecond,
		Priority:   ParsePriority(r.Priority),
		SizeBytes:  r.SizeBytes,
		LastAccess: time.UnixMilli(r.LastAccess),
	}
}
