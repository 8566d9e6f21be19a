package warming

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"vantage.ai/dashboard-cache-engine/app/domain/cache"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
	"vantage.ai/dashboard-cache-engine/app/domain/fetcher"
	"vantage.ai/dashboard-cache-engine/app/utils/functional"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

// Run states per (trigger, scope) pair.
const (
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Skip reasons returned in Result.Reason.
const (
	ReasonDisabled           = "disabled"
	ReasonPredictiveDisabled = "predictive_disabled"
	ReasonNoPatterns         = "no_patterns"
	ReasonNoHistory          = "no_history"
	ReasonInProgress         = "in_progress"
)

const (
	predictiveTrigger = "predictive"
	predictiveWindow  = 20
	predictiveTopN    = 3
	historyCapacity   = 50
)

// Scope identifies what a warming run targets (e.g. port + project).
type Scope struct {
	ScopeID   string
	ProjectID string
}

func (s Scope) Key() string {
	return s.ScopeID + ":" + s.ProjectID
}

// Options narrows a warming run.
type Options struct {
	// Priority filters the trigger's patterns to one priority; zero keeps all.
	Priority cache.Priority
}

// Result reports one warming run (or why it was skipped — a concurrent run
// for the same scope is not an error).
type Result struct {
	Trigger   string
	Skipped   bool
	Reason    string
	Warmed    []string
	Failed    []string
	TotalTime time.Duration
}

// Config tunes the warming engine.
type Config struct {
	Enabled            bool
	PredictiveEnabled  bool
	Concurrency        int
	BatchTimeout       time.Duration
	BackgroundInterval time.Duration
}

func ConfigFromEnv() Config {
	env := environment_variables.EnvironmentVariables
	return Config{
		Enabled:            env.WARMING_ENABLED,
		PredictiveEnabled:  env.PREDICTIVE_WARMING_ENABLED,
		Concurrency:        env.WARMING_CONCURRENCY,
		BatchTimeout:       time.Duration(env.WARMING_BATCH_TIMEOUT_MS) * time.Millisecond,
		BackgroundInterval: time.Duration(env.WARMING_BACKGROUND_INTERVAL_MS) * time.Millisecond,
	}
}

// WarmingService proactively populates the cache ahead of anticipated reads,
// driven by named lifecycle triggers and by usage-pattern prediction.
type WarmingService struct {
	mu       sync.Mutex
	cfg      Config
	patterns map[string][]Pattern
	states   map[string]string
	history  *historyRing

	totalWarming      uint64
	successfulWarming uint64
	failedWarming     uint64
	avgDuration       time.Duration

	activeScope    Scope
	hasActiveScope bool
	bgStop         chan struct{}

	cache *cache.CacheService
	fetch fetcher.Fetcher
	log   *logrus.Logger
}

func NewWarmingService(cacheService *cache.CacheService, fetch fetcher.Fetcher) *WarmingService {
	return NewWarmingServiceWithConfig(ConfigFromEnv(), cacheService, fetch)
}

func NewWarmingServiceWithConfig(cfg Config, cacheService *cache.CacheService, fetch fetcher.Fetcher) *WarmingService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Second
	}
	if cfg.BackgroundInterval <= 0 {
		cfg.BackgroundInterval = 5 * time.Minute
	}
	return &WarmingService{
		cfg:      cfg,
		patterns: defaultTriggerPatterns(),
		states:   make(map[string]string),
		history:  newHistoryRing(historyCapacity),
		cache:    cacheService,
		fetch:    fetch,
		log:      logger.GetLogger(),
	}
}

// WarmForTrigger runs every pattern registered for the trigger against the
// scope. At most one run per (trigger, scope) is in progress at a time; a
// second caller gets a skipped result instead of a duplicate run.
func (s *WarmingService) WarmForTrigger(ctx context.Context, trigger string, scope Scope, opts Options) Result {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return Result{Trigger: trigger, Skipped: true, Reason: ReasonDisabled}
	}
	patterns := append([]Pattern(nil), s.patterns[trigger]...)
	s.mu.Unlock()

	if opts.Priority != 0 {
		patterns = functional.Filter(patterns, func(p Pattern) bool {
			return p.Priority == opts.Priority
		})
	}
	if len(patterns) == 0 {
		return Result{Trigger: trigger, Skipped: true, Reason: ReasonNoPatterns}
	}

	stateKey := trigger + "|" + scope.Key()
	s.mu.Lock()
	if s.states[stateKey] == StateInProgress {
		s.mu.Unlock()
		return Result{Trigger: trigger, Skipped: true, Reason: ReasonInProgress}
	}
	s.states[stateKey] = StateInProgress
	s.mu.Unlock()

	result := s.runPatterns(ctx, trigger, scope, patterns)
	s.finishRun(stateKey, scope, result)
	return result
}

// finishRun records the terminal state, aggregate counters, running average
// and history entry for one non-skipped warming run, predictive or not.
func (s *WarmingService) finishRun(stateKey string, scope Scope, result Result) {
	final := StateCompleted
	if len(result.Warmed) == 0 && len(result.Failed) > 0 {
		final = StateFailed
	}

	s.mu.Lock()
	s.states[stateKey] = final
	s.totalWarming++
	if final == StateCompleted {
		s.successfulWarming++
	} else {
		s.failedWarming++
	}
	// Running average over all completed runs.
	s.avgDuration += (result.TotalTime - s.avgDuration) / time.Duration(s.totalWarming)
	s.history.append(HistoryRecord{
		Trigger:     result.Trigger,
		ScopeKey:    scope.Key(),
		At:          time.Now(),
		WarmedCount: len(result.Warmed),
		FailedCount: len(result.Failed),
		Duration:    result.TotalTime,
	})
	s.mu.Unlock()
}

// runPatterns issues one prefetch per pattern, bounded in concurrency and by
// the batch timeout so a hung collaborator cannot stall the engine.
func (s *WarmingService) runPatterns(ctx context.Context, trigger string, scope Scope, patterns []Pattern) Result {
	start := time.Now()
	batchCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	var mu sync.Mutex
	result := Result{Trigger: trigger}

	group, groupCtx := errgroup.WithContext(batchCtx)
	group.SetLimit(s.cfg.Concurrency)
	for _, pattern := range patterns {
		pattern := pattern
		group.Go(func() error {
			key := cache.BuildKey(pattern.DataType, scope.ScopeID, scope.ProjectID, "data")
			res, err := s.fetch.Fetch(groupCtx, fetcher.ResourceDescriptor{
				DataType:   pattern.DataType,
				ScopeID:    scope.ScopeID,
				SubScopeID: scope.ProjectID,
				Qualifier:  "data",
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil || !res.Success {
				if err != nil {
					s.log.Warnf("warming: fetch %s failed: %v", key, err)
				}
				result.Failed = append(result.Failed, key)
				return nil // a failed prefetch never aborts the batch
			}
			if s.cache.Set(key, res.Data, pattern.DataType, pattern.Namespace) {
				result.Warmed = append(result.Warmed, key)
			} else {
				result.Failed = append(result.Failed, key)
			}
			return nil
		})
	}
	_ = group.Wait()

	result.TotalTime = time.Since(start)
	return result
}

// PredictiveWarming aggregates recent history for the scope into trigger
// frequencies, synthesizes high-priority patterns from the most frequent
// triggers, and runs them through the same warming path.
func (s *WarmingService) PredictiveWarming(ctx context.Context, scope Scope) Result {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return Result{Trigger: predictiveTrigger, Skipped: true, Reason: ReasonDisabled}
	}
	if !s.cfg.PredictiveEnabled {
		s.mu.Unlock()
		return Result{Trigger: predictiveTrigger, Skipped: true, Reason: ReasonPredictiveDisabled}
	}
	recent := s.history.forScope(scope.Key(), predictiveWindow)
	patternsByTrigger := make(map[string][]Pattern, len(s.patterns))
	for trigger, patterns := range s.patterns {
		patternsByTrigger[trigger] = append([]Pattern(nil), patterns...)
	}
	s.mu.Unlock()

	if len(recent) == 0 {
		return Result{Trigger: predictiveTrigger, Skipped: true, Reason: ReasonNoHistory}
	}

	patterns := synthesizePatterns(recent, patternsByTrigger)
	if len(patterns) == 0 {
		return Result{Trigger: predictiveTrigger, Skipped: true, Reason: ReasonNoPatterns}
	}

	stateKey := predictiveTrigger + "|" + scope.Key()
	s.mu.Lock()
	if s.states[stateKey] == StateInProgress {
		s.mu.Unlock()
		return Result{Trigger: predictiveTrigger, Skipped: true, Reason: ReasonInProgress}
	}
	s.states[stateKey] = StateInProgress
	s.mu.Unlock()

	result := s.runPatterns(ctx, predictiveTrigger, scope, patterns)
	s.finishRun(stateKey, scope, result)
	return result
}

// synthesizePatterns elevates the patterns of the top recent triggers to high
// priority, deduplicated by data type. Triggers are ranked by frequency
// weighted by observed success rate, which reduces to the count of successful
// runs; a trigger whose recent runs all failed is not worth re-warming.
// Predictive runs themselves are excluded so the ranking never feeds back
// into its own input.
func synthesizePatterns(recent []HistoryRecord, patternsByTrigger map[string][]Pattern) []Pattern {
	runs := make(map[string]int)
	successes := make(map[string]int)
	for _, record := range recent {
		if record.Trigger == predictiveTrigger {
			continue
		}
		runs[record.Trigger]++
		if record.WarmedCount > 0 || record.FailedCount == 0 {
			successes[record.Trigger]++
		}
	}

	triggers := functional.Filter(functional.Keys(runs), func(trigger string) bool {
		return successes[trigger] > 0
	})
	sort.Slice(triggers, func(i, j int) bool {
		if successes[triggers[i]] != successes[triggers[j]] {
			return successes[triggers[i]] > successes[triggers[j]]
		}
		if runs[triggers[i]] != runs[triggers[j]] {
			return runs[triggers[i]] > runs[triggers[j]]
		}
		return triggers[i] < triggers[j]
	})
	if len(triggers) > predictiveTopN {
		triggers = triggers[:predictiveTopN]
	}

	seen := make(map[string]struct{})
	var out []Pattern
	for _, trigger := range triggers {
		for _, pattern := range patternsByTrigger[trigger] {
			if _, dup := seen[pattern.DataType]; dup {
				continue
			}
			seen[pattern.DataType] = struct{}{}
			pattern.Priority = cache.PriorityHigh
			out = append(out, pattern)
		}
	}
	return out
}

// SetActiveScope records the scope background warming should target.
func (s *WarmingService) SetActiveScope(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeScope = scope
	s.hasActiveScope = true
}

// StartBackgroundWarming begins the fixed-interval predictive loop. Starting
// twice does not create two timers.
func (s *WarmingService) StartBackgroundWarming() {
	s.mu.Lock()
	if s.bgStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.bgStop = stop
	interval := s.cfg.BackgroundInterval
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				scope, ok := s.activeScope, s.hasActiveScope
				s.mu.Unlock()
				if ok {
					s.PredictiveWarming(context.Background(), scope)
				}
			case <-stop:
				return
			}
		}
	}()
}

// StopBackgroundWarming halts the loop; stopping an idle engine is a no-op.
func (s *WarmingService) StopBackgroundWarming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bgStop == nil {
		return
	}
	close(s.bgStop)
	s.bgStop = nil
}

// Stats is an aggregate view of warming activity.
type Stats struct {
	TotalWarming      uint64
	SuccessfulWarming uint64
	FailedWarming     uint64
	AverageDuration   time.Duration
	HistoryLen        int
}

func (s *WarmingService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TotalWarming:      s.totalWarming,
		SuccessfulWarming: s.successfulWarming,
		FailedWarming:     s.failedWarming,
		AverageDuration:   s.avgDuration,
		HistoryLen:        s.history.len(),
	}
}

// BindEvents wires warming triggers to the domain event bus. Each lifecycle
// event warms its own trigger name for the event's scope.
func (s *WarmingService) BindEvents(bus *events.EventBus) {
	for trigger := range defaultTriggerPatterns() {
		trigger := trigger
		bus.On(trigger, func(p events.Payload) {
			scope := Scope{ScopeID: p.ScopeID}
			if projectID, ok := p.Extra["projectId"].(string); ok {
				scope.ProjectID = projectID
			}
			s.SetActiveScope(scope)
			go s.WarmForTrigger(context.Background(), trigger, scope, Options{})
		})
	}
}
