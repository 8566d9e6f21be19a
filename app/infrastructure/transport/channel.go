package transport

import "context"

// Well-known names shared by every engine instance on the same backend.
const (
	syncChannelName = "dce:v1:sync"
	syncSeqKey      = "dce:v1:sync:seq"
	syncMsgKeyFmt   = "dce:v1:sync:msg:%d"
	probeChannel    = "dce:v1:sync:probe"
)

type Handler func(payload []byte)

// Channel is one cross-instance message transport. Every implementation
// carries the same serialized message contract, so subscriber code is
// transport-agnostic.
type Channel interface {
	// Publish sends one serialized message to every other instance.
	Publish(ctx context.Context, payload []byte) error

	// Start begins delivering incoming payloads to the handler. It must be
	// called at most once between Stops.
	Start(ctx context.Context, handler Handler) error

	// Stop ends delivery. Stopping an idle channel is a no-op.
	Stop() error

	// Name identifies the transport ("pubsub", "keyevent", "noop").
	Name() string
}
