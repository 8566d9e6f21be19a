package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vantage.ai/dashboard-cache-engine/app/domain/cache"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
	"vantage.ai/dashboard-cache-engine/app/domain/fetcher"
	"vantage.ai/dashboard-cache-engine/app/domain/refresh"
	"vantage.ai/dashboard-cache-engine/app/domain/session"
	"vantage.ai/dashboard-cache-engine/app/domain/syncbus"
	"vantage.ai/dashboard-cache-engine/app/domain/warming"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/durable"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/transport"
)

// deadChannel refuses every subscription, like a transport whose backend is
// unreachable at startup.
type deadChannel struct{}

func (deadChannel) Publish(ctx context.Context, payload []byte) error { return nil }
func (deadChannel) Start(ctx context.Context, handler transport.Handler) error {
	return errors.New("subscribe refused")
}
func (deadChannel) Stop() error  { return nil }
func (deadChannel) Name() string { return "pubsub" }

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, rd fetcher.ResourceDescriptor) (fetcher.Result, error) {
	return fetcher.Result{Success: true, Data: "x"}, nil
}

func newTestEngine(channel transport.Channel) *Engine {
	cacheService := cache.NewCacheServiceWithConfig(cache.DefaultConfig(), &durable.NoOpStore{})
	warmingService := warming.NewWarmingServiceWithConfig(warming.Config{
		Enabled:            true,
		PredictiveEnabled:  true,
		Concurrency:        2,
		BatchTimeout:       time.Second,
		BackgroundInterval: time.Hour,
	}, cacheService, stubFetcher{})
	syncService := syncbus.NewSyncService(channel)
	return New(
		events.NewEventBus(),
		cacheService,
		warmingService,
		syncService,
		session.NewMonitor(syncService),
		refresh.NewRefreshService(cacheService),
	)
}

func TestStartSurvivesDeadSyncTransport(t *testing.T) {
	e := newTestEngine(deadChannel{})
	defer e.Stop()

	require.NoError(t, e.Start(context.Background()), "a dead sync transport must never abort startup")

	caps := e.Sync.GetCapabilities()
	assert.True(t, caps.Active)
	assert.Equal(t, "noop", caps.Transport, "the bus runs standalone on the noop transport")
}

func TestStartIsIdempotent(t *testing.T) {
	e := newTestEngine(&transport.NoOpChannel{})
	defer e.Stop()

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Start(context.Background()))
	assert.True(t, e.Sync.GetCapabilities().Active)
}
