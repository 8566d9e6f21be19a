package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"vantage.ai/dashboard-cache-engine/app/domain/cache"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
	"vantage.ai/dashboard-cache-engine/app/utils/debounce"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

const (
	refreshDataType  = "refresh"
	refreshNamespace = "refresh"
	activityDebounce = 500 * time.Millisecond
)

// Hooks are the per-component callbacks supplied at registration. Fetch loads
// fresh data from the collaborator; Update pushes data into the UI component.
type Hooks struct {
	Fetch  func(ctx context.Context) (any, error)
	Update func(data any)
}

type component struct {
	key      string
	hooks    Hooks
	interval time.Duration

	stopTimer chan struct{} // nil while timers are suspended

	// generation orders refresh attempts: only the newest attempt may apply
	// its result; superseded fetches are cancelled and must exit without
	// mutating shared state.
	generation   uint64
	inflightGen  uint64
	inflightStop context.CancelFunc
}

// Stats counts orchestrator activity.
type Stats struct {
	CacheHits   uint64
	CacheMisses uint64
	Refreshes   uint64
	Failures    uint64
}

// RefreshService schedules periodic and event-driven data refresh per
// registered UI component, consulting the cache before falling back to a live
// fetch. Refresh work is suspended while the instance is known to be idle.
type RefreshService struct {
	mu           sync.Mutex
	components   map[string]*component
	timersActive bool
	stats        Stats

	cache     *cache.CacheService
	flight    singleflight.Group
	debouncer *debounce.Debouncer
	log       *logrus.Logger
}

func NewRefreshService(cacheService *cache.CacheService) *RefreshService {
	return &RefreshService{
		components:   make(map[string]*component),
		timersActive: true,
		cache:        cacheService,
		debouncer:    debounce.New(activityDebounce),
		log:          logger.GetLogger(),
	}
}

// RegisterComponent registers hooks under the component key and immediately
// starts its refresh timer (plus one initial refresh). Re-registering a key
// replaces the previous registration.
func (s *RefreshService) RegisterComponent(key string, hooks Hooks, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	s.mu.Lock()
	if old, ok := s.components[key]; ok {
		s.stopTimerLocked(old)
	}
	c := &component{key: key, hooks: hooks, interval: interval}
	s.components[key] = c
	if s.timersActive {
		s.startTimerLocked(c)
	}
	s.mu.Unlock()

	go s.RefreshComponent(context.Background(), key)
}

// UnregisterComponent stops the component's timer, aborts any in-flight
// fetch, and forgets the registration.
func (s *RefreshService) UnregisterComponent(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[key]
	if !ok {
		return
	}
	s.stopTimerLocked(c)
	if c.inflightStop != nil {
		c.inflightStop()
		c.inflightStop = nil
	}
	delete(s.components, key)
}

// RefreshComponent refreshes one component: cache hit updates the component
// directly; a miss fetches, caches and updates. A fetch failure leaves the
// prior UI state untouched and never escapes to the caller.
func (s *RefreshService) RefreshComponent(ctx context.Context, key string) {
	s.mu.Lock()
	c, ok := s.components[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	hooks := c.hooks
	s.mu.Unlock()

	if cached, ok := s.cache.Get(cache.RefreshKey(key)); ok {
		s.mu.Lock()
		s.stats.CacheHits++
		s.mu.Unlock()
		hooks.Update(cached)
		return
	}

	// Miss: abort any superseded in-flight fetch before starting ours. The
	// cancelled fetch still owns the singleflight slot; forget it so this
	// attempt issues a fresh fetch instead of joining one that will only
	// observe its own cancellation.
	s.mu.Lock()
	if c.inflightStop != nil {
		c.inflightStop()
		s.flight.Forget(key)
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.inflightStop = cancel
	c.inflightGen = gen
	s.mu.Unlock()

	data, err, _ := s.flight.Do(key, func() (any, error) {
		return hooks.Fetch(fetchCtx)
	})

	s.mu.Lock()
	if c.inflightGen == gen {
		c.inflightStop = nil
	}
	superseded := c.generation != gen
	s.mu.Unlock()
	cancel()

	if superseded {
		return // a newer refresh owns the right to apply results
	}
	if err != nil {
		s.mu.Lock()
		s.stats.Failures++
		s.mu.Unlock()
		s.log.Warnf("refresh: fetch for %s failed: %v", key, err)
		return
	}

	s.cache.Set(cache.RefreshKey(key), data, refreshDataType, refreshNamespace)
	s.mu.Lock()
	s.stats.CacheMisses++
	s.stats.Refreshes++
	s.mu.Unlock()
	hooks.Update(data)
}

// HandleDataChange lets other parts of the system push fresh data in without
// waiting for the next timer tick.
func (s *RefreshService) HandleDataChange(key string, data any) {
	s.cache.Set(cache.RefreshKey(key), data, refreshDataType, refreshNamespace)

	s.mu.Lock()
	c, ok := s.components[key]
	var hooks Hooks
	if ok {
		hooks = c.hooks
	}
	s.mu.Unlock()

	if ok {
		hooks.Update(data)
	}
}

// HandleCacheInvalidation drops the cached result and refreshes immediately.
func (s *RefreshService) HandleCacheInvalidation(key string) {
	s.cache.Delete(cache.RefreshKey(key))
	go s.RefreshComponent(context.Background(), key)
}

// HandleUserActive resumes all refresh timers (debounced against rapid
// activity flaps) and triggers an immediate refresh of every component.
func (s *RefreshService) HandleUserActive() {
	s.debouncer.Trigger(s.resumeAll)
}

// HandleUserInactive suspends all refresh timers; this is the backpressure
// mechanism against network and cache churn while the instance is idle.
func (s *RefreshService) HandleUserInactive() {
	s.debouncer.Trigger(s.suspendAll)
}

// BindEvents subscribes activity transitions from the external activity
// tracking collaborator.
func (s *RefreshService) BindEvents(bus *events.EventBus) {
	bus.On(events.EventUserActive, func(events.Payload) { s.HandleUserActive() })
	bus.On(events.EventUserInactive, func(events.Payload) { s.HandleUserInactive() })
}

// GetStats returns orchestrator counters.
func (s *RefreshService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Stop suspends every timer and pending activity transition.
func (s *RefreshService) Stop() {
	s.debouncer.Stop()
	s.suspendAll()
}

func (s *RefreshService) resumeAll() {
	s.mu.Lock()
	wasActive := s.timersActive
	s.timersActive = true
	keys := make([]string, 0, len(s.components))
	for _, c := range s.components {
		s.startTimerLocked(c)
		keys = append(keys, c.key)
	}
	s.mu.Unlock()

	if wasActive {
		return
	}
	// Coming back from idle: refresh everything now rather than waiting a tick.
	for _, key := range keys {
		go s.RefreshComponent(context.Background(), key)
	}
}

func (s *RefreshService) suspendAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timersActive = false
	for _, c := range s.components {
		s.stopTimerLocked(c)
	}
}

func (s *RefreshService) startTimerLocked(c *component) {
	if c.stopTimer != nil {
		return
	}
	stop := make(chan struct{})
	c.stopTimer = stop

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RefreshComponent(context.Background(), c.key)
			case <-stop:
				return
			}
		}
	}()
}

func (s *RefreshService) stopTimerLocked(c *component) {
	if c.stopTimer == nil {
		return
	}
	close(c.stopTimer)
	c.stopTimer = nil
}
