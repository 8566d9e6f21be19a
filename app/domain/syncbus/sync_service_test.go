package syncbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/transport"
)

// fakeHub is a shared in-memory medium: every publish is delivered to every
// started channel, the publisher's own included, like a real broadcast
// transport would.
type fakeHub struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (h *fakeHub) newChannel() *fakeChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &fakeChannel{hub: h}
	h.channels = append(h.channels, c)
	return c
}

func (h *fakeHub) broadcast(payload []byte) {
	h.mu.Lock()
	handlers := make([]transport.Handler, 0, len(h.channels))
	for _, c := range h.channels {
		if c.handler != nil {
			handlers = append(handlers, c.handler)
		}
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(payload)
	}
}

type fakeChannel struct {
	hub        *fakeHub
	handler    transport.Handler
	startCalls int
	published  int
}

func (c *fakeChannel) Publish(ctx context.Context, payload []byte) error {
	c.hub.mu.Lock()
	c.published++
	c.hub.mu.Unlock()
	c.hub.broadcast(payload)
	return nil
}

func (c *fakeChannel) Start(ctx context.Context, handler transport.Handler) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.startCalls++
	c.handler = handler
	return nil
}

func (c *fakeChannel) Stop() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.handler = nil
	return nil
}

func (c *fakeChannel) Name() string { return "fake" }

func TestBroadcastReachesOtherInstancesNotSelf(t *testing.T) {
	hub := &fakeHub{}
	sender := NewSyncService(hub.newChannel())
	receiver := NewSyncService(hub.newChannel())
	require.NoError(t, sender.StartSync(context.Background()))
	require.NoError(t, receiver.StartSync(context.Background()))

	var senderGot, receiverGot []map[string]any
	sender.On(TypeLogout, func(p map[string]any) { senderGot = append(senderGot, p) })
	receiver.On(TypeLogout, func(p map[string]any) { receiverGot = append(receiverGot, p) })

	require.NoError(t, sender.Broadcast(TypeLogout, map[string]any{"userId": "u1"}))

	require.Len(t, receiverGot, 1)
	assert.Equal(t, map[string]any{"userId": "u1"}, receiverGot[0])
	assert.Empty(t, senderGot, "self-echo must be suppressed")

	assert.Equal(t, uint64(1), sender.GetStats().Sent)
	assert.Equal(t, uint64(1), sender.GetStats().SelfEchoes)
	assert.Equal(t, uint64(1), receiver.GetStats().Received)
}

func TestBroadcastWhileInactiveIsNoOp(t *testing.T) {
	hub := &fakeHub{}
	channel := hub.newChannel()
	svc := NewSyncService(channel)

	require.NoError(t, svc.Broadcast(TypeLogin, map[string]any{"userId": "u1"}))
	assert.Equal(t, 0, channel.published)
	assert.Equal(t, uint64(0), svc.GetStats().Sent)
}

func TestStartSyncIsIdempotent(t *testing.T) {
	hub := &fakeHub{}
	channel := hub.newChannel()
	svc := NewSyncService(channel)

	require.NoError(t, svc.StartSync(context.Background()))
	require.NoError(t, svc.StartSync(context.Background()))
	assert.Equal(t, 1, channel.startCalls)

	require.NoError(t, svc.StopSync())
	require.NoError(t, svc.StopSync())
}

// brokenChannel refuses to subscribe, as a pubsub transport does when the
// backend drops the connection mid-handshake.
type brokenChannel struct{}

func (brokenChannel) Publish(ctx context.Context, payload []byte) error { return nil }
func (brokenChannel) Start(ctx context.Context, handler transport.Handler) error {
	return errors.New("subscribe refused")
}
func (brokenChannel) Stop() error  { return nil }
func (brokenChannel) Name() string { return "pubsub" }

func TestStartSyncDegradesWhenTransportFails(t *testing.T) {
	svc := NewSyncService(brokenChannel{})

	require.NoError(t, svc.StartSync(context.Background()), "a dead transport must never be fatal")

	caps := svc.GetCapabilities()
	assert.True(t, caps.Active)
	assert.Equal(t, "noop", caps.Transport)

	assert.NoError(t, svc.Broadcast(TypeLogout, map[string]any{"userId": "u1"}))
	assert.NoError(t, svc.StopSync())
}

func TestMalformedWireMessageIsDropped(t *testing.T) {
	hub := &fakeHub{}
	svc := NewSyncService(hub.newChannel())
	require.NoError(t, svc.StartSync(context.Background()))

	called := false
	svc.On(TypeLogout, func(map[string]any) { called = true })

	hub.broadcast([]byte("{not json"))

	assert.False(t, called)
	assert.Equal(t, uint64(1), svc.GetStats().Malformed)
}

func TestProcessMessageRejectsMissingType(t *testing.T) {
	svc := NewSyncService((&fakeHub{}).newChannel())

	svc.ProcessMessage(&Message{Payload: map[string]any{"x": "y"}})
	assert.Equal(t, uint64(1), svc.GetStats().Malformed)
	assert.Equal(t, uint64(0), svc.GetStats().Received)
}

func TestOffRemovesSubscription(t *testing.T) {
	svc := NewSyncService((&fakeHub{}).newChannel())

	called := false
	id := svc.On(TypeSessionExpired, func(map[string]any) { called = true })
	svc.Off(TypeSessionExpired, id)

	svc.ProcessMessage(&Message{Type: TypeSessionExpired, OriginTabID: "other-tab"})
	assert.False(t, called)
}

func TestGetCapabilities(t *testing.T) {
	hub := &fakeHub{}
	svc := NewSyncService(hub.newChannel())

	caps := svc.GetCapabilities()
	assert.Equal(t, "fake", caps.Transport)
	assert.False(t, caps.Active)
	assert.NotEmpty(t, caps.TabID)

	require.NoError(t, svc.StartSync(context.Background()))
	assert.True(t, svc.GetCapabilities().Active)
}

func TestTabIDsAreUnique(t *testing.T) {
	hub := &fakeHub{}
	a := NewSyncService(hub.newChannel())
	b := NewSyncService(hub.newChannel())
	assert.NotEqual(t, a.TabID(), b.TabID())
}
