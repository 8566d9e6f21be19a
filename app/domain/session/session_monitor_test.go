package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vantage.ai/dashboard-cache-engine/app/domain/syncbus"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/transport"
)

// loopChannel delivers every publish straight to its peer, standing in for a
// real shared transport between two instances.
type loopChannel struct {
	peer    *loopChannel
	handler transport.Handler
}

func pairChannels() (*loopChannel, *loopChannel) {
	a := &loopChannel{}
	b := &loopChannel{}
	a.peer = b
	b.peer = a
	return a, b
}

func (c *loopChannel) Publish(ctx context.Context, payload []byte) error {
	if c.peer.handler != nil {
		c.peer.handler(payload)
	}
	return nil
}

func (c *loopChannel) Start(ctx context.Context, handler transport.Handler) error {
	c.handler = handler
	return nil
}

func (c *loopChannel) Stop() error {
	c.handler = nil
	return nil
}

func (c *loopChannel) Name() string { return "loop" }

func newMonitorPair(t *testing.T) (*Monitor, *Monitor) {
	t.Helper()
	chanA, chanB := pairChannels()
	busA := syncbus.NewSyncService(chanA)
	busB := syncbus.NewSyncService(chanB)
	require.NoError(t, busA.StartSync(context.Background()))
	require.NoError(t, busB.StartSync(context.Background()))

	a := NewMonitor(busA)
	b := NewMonitor(busB)
	a.Start()
	b.Start()
	t.Cleanup(func() {
		a.Stop()
		b.Stop()
	})
	return a, b
}

func TestLoginPropagates(t *testing.T) {
	a, b := newMonitorPair(t)

	expiresAt := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	a.NotifyLogin("sess-1", expiresAt)

	assert.True(t, a.GetState().Authenticated)

	state := b.GetState()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "sess-1", state.SessionID)
	assert.Equal(t, expiresAt.UnixMilli(), state.ExpiresAt.UnixMilli())
}

func TestLogoutPropagates(t *testing.T) {
	a, b := newMonitorPair(t)

	a.NotifyLogin("sess-1", time.Now().Add(time.Hour))
	require.True(t, b.GetState().Authenticated)

	a.NotifyLogout()
	assert.False(t, a.GetState().Authenticated)
	assert.False(t, b.GetState().Authenticated)
	assert.Empty(t, b.GetState().SessionID)
}

func TestSessionExpiredIsIdempotent(t *testing.T) {
	_, b := newMonitorPair(t)

	b.onLogin(map[string]any{"sessionId": "sess-1"})
	require.True(t, b.GetState().Authenticated)

	expired := map[string]any{"sessionId": "sess-1"}
	b.onExpired(expired)
	first := b.GetState()
	b.onExpired(expired)

	assert.Equal(t, first, b.GetState(), "replaying the message must not change state")
	assert.False(t, b.GetState().Authenticated)
}

func TestExpiryOfForeignSessionIgnored(t *testing.T) {
	_, b := newMonitorPair(t)

	b.onLogin(map[string]any{"sessionId": "sess-1"})
	b.onExpired(map[string]any{"sessionId": "sess-other"})

	assert.True(t, b.GetState().Authenticated)
}

func TestWarningShownAndDismissed(t *testing.T) {
	_, b := newMonitorPair(t)

	b.onWarningShown(nil)
	assert.True(t, b.GetState().WarningShown)
	b.onWarningDismissed(nil)
	assert.False(t, b.GetState().WarningShown)
}

func TestSessionExtendedClearsWarning(t *testing.T) {
	_, b := newMonitorPair(t)

	b.onWarningShown(nil)
	newExpiry := time.Now().Add(2 * time.Hour).UnixMilli()
	b.onExtended(map[string]any{"expiresAt": float64(newExpiry)})

	state := b.GetState()
	assert.False(t, state.WarningShown)
	assert.Equal(t, newExpiry, state.ExpiresAt.UnixMilli())
}

func TestRecordActivityUpdatesLocalState(t *testing.T) {
	a, _ := newMonitorPair(t)

	before := a.GetState().LastActivity
	a.RecordActivity()
	assert.True(t, a.GetState().LastActivity.After(before))
}

func TestActivityUpdateKeepsNewestTimestamp(t *testing.T) {
	_, b := newMonitorPair(t)

	newer := time.Now().UnixMilli()
	b.onActivity(map[string]any{"lastActivity": float64(newer)})
	require.Equal(t, newer, b.GetState().LastActivity.UnixMilli())

	// An older remote timestamp must not rewind local knowledge.
	b.onActivity(map[string]any{"lastActivity": float64(newer - 10000)})
	assert.Equal(t, newer, b.GetState().LastActivity.UnixMilli())
}

func TestStartIsIdempotent(t *testing.T) {
	chanA, _ := pairChannels()
	bus := syncbus.NewSyncService(chanA)
	require.NoError(t, bus.StartSync(context.Background()))

	m := NewMonitor(bus)
	m.Start()
	subs := len(m.subs)
	m.Start()
	assert.Equal(t, subs, len(m.subs))
	m.Stop()
	assert.Empty(t, m.subs)
}
