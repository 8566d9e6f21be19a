package durable

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

type stubStore struct {
	NoOpStore
	mu      sync.Mutex
	initErr error
	closed  bool
}

func (s *stubStore) Initialize(ctx context.Context) error { return s.initErr }

func (s *stubStore) Mode() string { return "stub" }

func (s *stubStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubStore) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestOpenWithTimeoutHealthyBackend(t *testing.T) {
	stub := &stubStore{}
	store := openWithTimeout(func() (DurableStore, error) { return stub, nil }, time.Second)
	assert.Equal(t, "stub", store.Mode())
}

func TestOpenWithTimeoutOpenError(t *testing.T) {
	store := openWithTimeout(func() (DurableStore, error) {
		return nil, errors.New("backend down")
	}, time.Second)
	assert.Equal(t, "degraded", store.Mode())
}

func TestOpenWithTimeoutInitializeError(t *testing.T) {
	stub := &stubStore{initErr: errors.New("schema broken")}
	store := openWithTimeout(func() (DurableStore, error) { return stub, nil }, time.Second)
	assert.Equal(t, "degraded", store.Mode())
	assert.True(t, stub.wasClosed())
}

func TestOpenWithTimeoutHangingBackend(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stub := &stubStore{}

	start := time.Now()
	store := openWithTimeout(func() (DurableStore, error) {
		<-release
		return stub, nil
	}, 50*time.Millisecond)

	assert.Equal(t, "degraded", store.Mode())
	assert.Less(t, time.Since(start), 5*time.Second, "a hung backend must not block startup")
}

func TestNewDurableStoreNone(t *testing.T) {
	prev := environment_variables.EnvironmentVariables.DURABLE_STORE_TYPE
	environment_variables.EnvironmentVariables.DURABLE_STORE_TYPE = "none"
	defer func() { environment_variables.EnvironmentVariables.DURABLE_STORE_TYPE = prev }()

	assert.Equal(t, "degraded", NewDurableStore().Mode())
}

func TestNewDurableStoreUnknownType(t *testing.T) {
	prev := environment_variables.EnvironmentVariables.DURABLE_STORE_TYPE
	environment_variables.EnvironmentVariables.DURABLE_STORE_TYPE = "cassandra"
	defer func() { environment_variables.EnvironmentVariables.DURABLE_STORE_TYPE = prev }()

	assert.Equal(t, "degraded", NewDurableStore().Mode())
}

func TestNewDurableStoreBolt(t *testing.T) {
	env := &environment_variables.EnvironmentVariables
	prevType, prevPath := env.DURABLE_STORE_TYPE, env.DURABLE_STORE_PATH
	env.DURABLE_STORE_TYPE = "bolt"
	env.DURABLE_STORE_PATH = t.TempDir() + "/cache.db"
	defer func() {
		env.DURABLE_STORE_TYPE = prevType
		env.DURABLE_STORE_PATH = prevPath
	}()

	store := NewDurableStore()
	defer store.Close()
	require.Equal(t, "bolt", store.Mode())
	assert.NoError(t, store.HealthCheck(context.Background()))
}
