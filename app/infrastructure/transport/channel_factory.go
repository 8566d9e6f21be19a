package transport

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

// NewChannel creates a sync transport based on configuration. In auto mode it
// probes capabilities and falls back pubsub -> keyevent -> noop, so callers
// always get a working Channel and never branch on availability.
func NewChannel() Channel {
	env := environment_variables.EnvironmentVariables
	mode := strings.ToLower(env.SYNC_TRANSPORT)
	poll := time.Duration(env.SYNC_POLL_INTERVAL_MS) * time.Millisecond

	if mode == "none" {
		return &NoOpChannel{}
	}

	client, err := newSyncRedisClient()
	if err != nil {
		logger.GetLogger().Infof("sync transport unavailable (%v), running standalone", err)
		return &NoOpChannel{}
	}

	switch mode {
	case "pubsub":
		return NewPubSubChannel(client)
	case "keyevent":
		return NewKeyEventChannel(client, poll)
	default: // auto
		if canSubscribe(client) {
			return NewPubSubChannel(client)
		}
		logger.GetLogger().Info("pubsub unsupported, falling back to keyevent transport")
		return NewKeyEventChannel(client, poll)
	}
}

// canSubscribe probes whether the backend accepts subscriptions.
func canSubscribe(client *redis.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, probeChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	return err == nil
}

func newSyncRedisClient() (*redis.Client, error) {
	env := environment_variables.EnvironmentVariables
	redisURL := env.CACHE_URL
	if redisURL == "" {
		redisURL = env.REDIS_URL
	}
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if env.CACHE_PASSWORD != "" {
		opts.Password = env.CACHE_PASSWORD
	} else if env.REDIS_PASSWORD != "" {
		opts.Password = env.REDIS_PASSWORD
	}
	if env.CACHE_DB != "" {
		if db, err := strconv.Atoi(env.CACHE_DB); err == nil {
			opts.DB = db
		}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
