package domain

import (
	"github.com/google/wire"
	"vantage.ai/dashboard-cache-engine/app/domain/cache"
	"vantage.ai/dashboard-cache-engine/app/domain/engine"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
	"vantage.ai/dashboard-cache-engine/app/domain/refresh"
	"vantage.ai/dashboard-cache-engine/app/domain/session"
	"vantage.ai/dashboard-cache-engine/app/domain/syncbus"
	"vantage.ai/dashboard-cache-engine/app/domain/warming"
)

var ServiceProvider = wire.NewSet(
	events.NewEventBus,
	cache.NewCacheService,
	warming.NewWarmingService,
	syncbus.NewSyncService,
	session.NewMonitor,
	refresh.NewRefreshService,
	engine.New,
)
