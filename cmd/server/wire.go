//go:build wireinject

package main

import (
	"github.com/google/wire"
	"vantage.ai/dashboard-cache-engine/app/domain"
	"vantage.ai/dashboard-cache-engine/app/domain/fetcher"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/durable"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/transport"
	dashboardapi "vantage.ai/dashboard-cache-engine/app/utils/httpclients/dashboard_api"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		durable.NewDurableStore,
		transport.NewChannel,
		dashboardapi.NewClient,
		wire.Bind(new(fetcher.Fetcher), new(*dashboardapi.Client)),
		domain.ServiceProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
