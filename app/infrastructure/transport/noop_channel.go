package transport

import "context"

// NoOpChannel provides a no-operation transport for graceful degradation.
// Broadcasts vanish and nothing is ever delivered; the local instance keeps
// working standalone.
type NoOpChannel struct{}

// Publish is a no-op implementation
func (n *NoOpChannel) Publish(ctx context.Context, payload []byte) error {
	return nil
}

// Start is a no-op implementation
func (n *NoOpChannel) Start(ctx context.Context, handler Handler) error {
	return nil
}

// Stop is a no-op implementation
func (n *NoOpChannel) Stop() error {
	return nil
}

// Name reports the degraded transport
func (n *NoOpChannel) Name() string {
	return "noop"
}
