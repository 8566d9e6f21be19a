package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"vantage.ai/dashboard-cache-engine/app/domain/syncbus"
	"vantage.ai/dashboard-cache-engine/app/utils/debounce"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

const activityBroadcastDebounce = 2 * time.Second

// State is the locally observed session state. Every cross-instance message
// is applied idempotently: replaying a message leaves the same state.
type State struct {
	Authenticated bool
	SessionID     string
	ExpiresAt     time.Time
	WarningShown  bool
	LastActivity  time.Time
}

// Monitor keeps session state consistent across instances by consuming and
// producing session messages on the sync bus. Only the expiry signaling
// crosses instances; authentication itself lives elsewhere.
type Monitor struct {
	mu    sync.Mutex
	state State
	subs  map[string]string // message type -> subscription handle

	bus       *syncbus.SyncService
	debouncer *debounce.Debouncer
	log       *logrus.Logger
}

func NewMonitor(bus *syncbus.SyncService) *Monitor {
	return &Monitor{
		subs:      make(map[string]string),
		bus:       bus,
		debouncer: debounce.New(activityBroadcastDebounce),
		log:       logger.GetLogger(),
	}
}

// Start subscribes the monitor to session messages. Starting twice is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) > 0 {
		return
	}

	handlers := map[string]syncbus.Handler{
		syncbus.TypeSessionExpired:   m.onExpired,
		syncbus.TypeSessionExtended:  m.onExtended,
		syncbus.TypeLogin:            m.onLogin,
		syncbus.TypeLogout:           m.onLogout,
		syncbus.TypeActivityUpdate:   m.onActivity,
		syncbus.TypeWarningShown:     m.onWarningShown,
		syncbus.TypeWarningDismissed: m.onWarningDismissed,
	}
	for msgType, handler := range handlers {
		m.subs[msgType] = m.bus.On(msgType, handler)
	}
}

// Stop removes every subscription.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for msgType, id := range m.subs {
		m.bus.Off(msgType, id)
	}
	m.subs = make(map[string]string)
	m.debouncer.Stop()
}

// GetState returns a snapshot of the observed session state.
func (m *Monitor) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RecordActivity notes local user activity and shares it with other
// instances, debounced so rapid events collapse into one broadcast.
func (m *Monitor) RecordActivity() {
	now := time.Now()
	m.mu.Lock()
	m.state.LastActivity = now
	m.mu.Unlock()

	m.debouncer.Trigger(func() {
		_ = m.bus.Broadcast(syncbus.TypeActivityUpdate, map[string]any{
			"lastActivity": now.UnixMilli(),
		})
	})
}

// NotifyLogin applies a local login and announces it to other instances.
func (m *Monitor) NotifyLogin(sessionID string, expiresAt time.Time) {
	m.mu.Lock()
	m.state = State{
		Authenticated: true,
		SessionID:     sessionID,
		ExpiresAt:     expiresAt,
		LastActivity:  time.Now(),
	}
	m.mu.Unlock()

	_ = m.bus.Broadcast(syncbus.TypeLogin, map[string]any{
		"sessionId": sessionID,
		"expiresAt": expiresAt.UnixMilli(),
	})
}

// NotifyLogout applies a local logout and announces it to other instances.
func (m *Monitor) NotifyLogout() {
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()

	_ = m.bus.Broadcast(syncbus.TypeLogout, map[string]any{})
}

func (m *Monitor) onExpired(payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sessionID, ok := payload["sessionId"].(string); ok && sessionID != "" && sessionID != m.state.SessionID {
		return // expiry of a session we do not hold
	}
	m.state.Authenticated = false
	m.state.WarningShown = false
	m.log.Info("session expired in another instance")
}

func (m *Monitor) onExtended(payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiresAt, ok := payload["expiresAt"].(float64); ok {
		m.state.ExpiresAt = time.UnixMilli(int64(expiresAt))
	}
	m.state.WarningShown = false
}

func (m *Monitor) onLogin(payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Authenticated = true
	if sessionID, ok := payload["sessionId"].(string); ok {
		m.state.SessionID = sessionID
	}
	if expiresAt, ok := payload["expiresAt"].(float64); ok {
		m.state.ExpiresAt = time.UnixMilli(int64(expiresAt))
	}
	m.state.WarningShown = false
}

func (m *Monitor) onLogout(map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
}

func (m *Monitor) onActivity(payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lastActivity, ok := payload["lastActivity"].(float64); ok {
		at := time.UnixMilli(int64(lastActivity))
		if at.After(m.state.LastActivity) {
			m.state.LastActivity = at
		}
	}
}

func (m *Monitor) onWarningShown(map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.WarningShown = true
}

func (m *Monitor) onWarningDismissed(map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.WarningShown = false
}
