package durable

import (
	"context"
	"strings"
	"time"

	"vantage.ai/dashboard-cache-engine/app/utils/logger"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

type opener func() (DurableStore, error)

// NewDurableStore creates a durable store based on configuration. Any failure
// (unsupported type, open error, initialize timeout, hung backend) yields the
// no-op store so application startup is never blocked and callers never
// special-case degraded mode.
func NewDurableStore() DurableStore {
	env := environment_variables.EnvironmentVariables
	storeType := strings.ToLower(env.DURABLE_STORE_TYPE)
	timeout := time.Duration(env.DURABLE_INIT_TIMEOUT_MS) * time.Millisecond

	var open opener
	switch storeType {
	case "redis":
		open = func() (DurableStore, error) { return NewRedisStore() }
	case "valkey":
		open = func() (DurableStore, error) { return NewValkeyStore() }
	case "bolt", "":
		open = func() (DurableStore, error) { return OpenBolt(env.DURABLE_STORE_PATH) }
	case "none":
		return &NoOpStore{}
	default:
		logger.GetLogger().Infof("unknown durable store type %q, running memory-only", storeType)
		return &NoOpStore{}
	}

	return openWithTimeout(open, timeout)
}

// openWithTimeout runs the opener and the store's Initialize under one
// deadline. A backend that hangs or errors is abandoned in favor of the
// degraded store; its goroutine is left to finish and close itself.
func openWithTimeout(open opener, timeout time.Duration) DurableStore {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	type result struct {
		store DurableStore
		err   error
	}
	done := make(chan result, 1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func() {
		store, err := open()
		if err != nil {
			done <- result{nil, err}
			return
		}
		if err := store.Initialize(ctx); err != nil {
			_ = store.Close()
			done <- result{nil, err}
			return
		}
		done <- result{store, nil}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			logger.GetLogger().Infof("durable store unavailable (%v), running memory-only", res.err)
			return &NoOpStore{}
		}
		logger.GetLogger().Infof("durable store ready (%s)", res.store.Mode())
		return res.store
	case <-ctx.Done():
		logger.GetLogger().Info("durable store initialization timed out, running memory-only")
		go func() {
			// Reap the late arrival so its handle does not leak.
			if res := <-done; res.store != nil {
				_ = res.store.Close()
			}
		}()
		return &NoOpStore{}
	}
}
