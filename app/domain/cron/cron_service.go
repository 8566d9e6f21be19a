package cron

import (
	"context"

	"github.com/mileusna/crontab"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/durable"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

// StaleSweeper removes entries unused past the staleness threshold.
type StaleSweeper interface {
	CleanupStale() int
}

type CronService struct {
	Sweeper StaleSweeper
	Store   durable.DurableStore
}

func NewService(sweeper StaleSweeper, store durable.DurableStore) *CronService {
	return &CronService{
		Sweeper: sweeper,
		Store:   store,
	}
}

func (cs *CronService) Start(ctx context.Context, ctab *crontab.Crontab) {
	cs.sweepStale()

	ctab.AddJob("* * * * *", func() {
		environment_variables.EnvironmentVariables.LoadFromEnv()
	})
	ctab.AddJob("0 * * * *", func() {
		cs.sweepStale()
		cs.checkDurable(ctx)
	})
}

func (cs *CronService) sweepStale() {
	if cs == nil || cs.Sweeper == nil {
		return
	}
	if removed := cs.Sweeper.CleanupStale(); removed > 0 {
		logger.GetLogger().Infof("cron service: swept %d stale cache entries", removed)
	}
}

func (cs *CronService) checkDurable(ctx context.Context) {
	if cs == nil || cs.Store == nil {
		return
	}
	if err := cs.Store.HealthCheck(ctx); err != nil {
		logger.GetLogger().Warnf("cron service: durable store health check failed: %v", err)
	}
}
