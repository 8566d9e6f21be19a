package durable

import "context"

// NoOpStore provides a no-operation durable store for graceful degradation.
// All persistence calls succeed silently; the cache runs memory-only.
type NoOpStore struct{}

// Initialize is a no-op implementation
func (n *NoOpStore) Initialize(ctx context.Context) error {
	return nil
}

// LoadAll always returns an empty record set
func (n *NoOpStore) LoadAll(ctx context.Context) ([]Record, error) {
	return nil, nil
}

// Put is a no-op implementation
func (n *NoOpStore) Put(ctx context.Context, record Record) error {
	return nil
}

// Delete is a no-op implementation
func (n *NoOpStore) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear is a no-op implementation
func (n *NoOpStore) Clear(ctx context.Context) error {
	return nil
}

// Mode reports the degraded backend
func (n *NoOpStore) Mode() string {
	return "degraded"
}

// HealthCheck always returns nil (healthy)
func (n *NoOpStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op implementation
func (n *NoOpStore) Close() error {
	return nil
}
