package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mileusna/crontab"
	"vantage.ai/dashboard-cache-engine/app/domain/cron"
	"vantage.ai/dashboard-cache-engine/app/domain/engine"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/durable"
	dashboardapi "vantage.ai/dashboard-cache-engine/app/utils/httpclients/dashboard_api"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

type Application struct {
	Engine *engine.Engine
	Store  durable.DurableStore
}

func (application *Application) Start(ctx context.Context) error {
	return application.Engine.Start(ctx)
}

func init() {
	environment_variables.EnvironmentVariables.LoadFromEnv()
	dashboardapi.Init()
}

func main() {
	application, err := CreateApplication()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronService := cron.NewService(application.Engine.Cache, application.Store)
	ctab := crontab.New()
	cronService.Start(ctx, ctab)

	if err := application.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()
	logger.GetLogger().Info("shutting down")
	application.Engine.Stop()
	if err := application.Store.Close(); err != nil {
		logger.GetLogger().Warnf("durable store close: %v", err)
	}
}
