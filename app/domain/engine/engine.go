package engine

import (
	"context"

	"github.com/sirupsen/logrus"
	"vantage.ai/dashboard-cache-engine/app/domain/cache"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
	"vantage.ai/dashboard-cache-engine/app/domain/refresh"
	"vantage.ai/dashboard-cache-engine/app/domain/session"
	"vantage.ai/dashboard-cache-engine/app/domain/syncbus"
	"vantage.ai/dashboard-cache-engine/app/domain/warming"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

// Engine assembles the cache, warming, sync and refresh services into one
// lifecycle. Construction wires the pieces; Start brings them online in
// dependency order and Stop tears them down in reverse.
type Engine struct {
	Bus     *events.EventBus
	Cache   *cache.CacheService
	Warming *warming.WarmingService
	Sync    *syncbus.SyncService
	Session *session.Monitor
	Refresh *refresh.RefreshService

	log     *logrus.Logger
	started bool
}

func New(
	bus *events.EventBus,
	cacheService *cache.CacheService,
	warmingService *warming.WarmingService,
	syncService *syncbus.SyncService,
	sessionMonitor *session.Monitor,
	refreshService *refresh.RefreshService,
) *Engine {
	return &Engine{
		Bus:     bus,
		Cache:   cacheService,
		Warming: warmingService,
		Sync:    syncService,
		Session: sessionMonitor,
		Refresh: refreshService,
		log:     logger.GetLogger(),
	}
}

// Start restores durable state, binds event subscriptions and brings the
// background loops online. It is idempotent.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return nil
	}

	restored := e.Cache.RestoreFromDurable(ctx)
	e.log.Infof("engine: restored %d entries from durable store", restored)

	e.Cache.BindEvents(e.Bus)
	e.Warming.BindEvents(e.Bus)
	e.Refresh.BindEvents(e.Bus)

	// StartSync degrades internally on transport failure; nothing in this
	// subsystem is fatal to the host.
	if err := e.Sync.StartSync(ctx); err != nil {
		e.log.Warnf("engine: sync bus start: %v", err)
	}
	e.Session.Start()

	e.Cache.StartMaintenance()
	e.Warming.StartBackgroundWarming()

	e.started = true
	caps := e.Sync.GetCapabilities()
	e.log.Infof("engine: started, sync transport=%s tab=%s", caps.Transport, caps.TabID)
	return nil
}

// Stop halts background loops and deactivates the sync bus. Safe to call on a
// never-started engine.
func (e *Engine) Stop() {
	e.Warming.StopBackgroundWarming()
	e.Cache.StopMaintenance()
	e.Refresh.Stop()
	e.Session.Stop()
	if err := e.Sync.StopSync(); err != nil {
		e.log.Warnf("engine: sync bus stop: %v", err)
	}
	e.started = false
}
