package syncbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"vantage.ai/dashboard-cache-engine/app/infrastructure/transport"
	"vantage.ai/dashboard-cache-engine/app/utils/idgen"
	"vantage.ai/dashboard-cache-engine/app/utils/logger"
)

// Handler receives the payload of a locally re-emitted message.
type Handler func(payload map[string]any)

// Capabilities reports which transport is active. Calling code may adapt
// expectations but never needs to branch on it for correctness; every
// transport satisfies the same message contract.
type Capabilities struct {
	Transport string
	Active    bool
	TabID     string
}

// Stats counts bus activity, including silently dropped messages.
type Stats struct {
	Sent       uint64
	Received   uint64
	SelfEchoes uint64
	Malformed  uint64
}

// SyncService is the same-origin publish/subscribe bus between engine
// instances. Messages originating from this instance are suppressed on
// receipt (self-echo suppression) using the process-lifetime tab identifier.
type SyncService struct {
	mu       sync.Mutex
	tabID    string
	channel  transport.Channel
	active   bool
	handlers map[string]map[string]Handler
	stats    Stats

	log *logrus.Logger
	now func() time.Time
}

func NewSyncService(channel transport.Channel) *SyncService {
	return &SyncService{
		tabID:    idgen.NewTabID(),
		channel:  channel,
		handlers: make(map[string]map[string]Handler),
		log:      logger.GetLogger(),
		now:      time.Now,
	}
}

// TabID returns this instance's identifier. It exists only for self-echo
// suppression and statistics grouping, never authorization.
func (s *SyncService) TabID() string {
	return s.tabID
}

// StartSync activates the bus. Calling it while active is a no-op that does
// not recreate the transport subscription. A transport that fails to start is
// never fatal to the host: the bus degrades to the noop transport and the
// instance runs standalone.
func (s *SyncService) StartSync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	if err := s.channel.Start(ctx, s.onWire); err != nil {
		s.log.Warnf("syncbus: %s transport failed to start, running standalone: %v", s.channel.Name(), err)
		s.channel = &transport.NoOpChannel{}
		_ = s.channel.Start(ctx, s.onWire)
	}
	s.active = true
	return nil
}

// StopSync deactivates the bus. Stopping an inactive bus is a no-op.
func (s *SyncService) StopSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	s.active = false
	return s.channel.Stop()
}

// Broadcast sends a typed message to every other instance. It is a no-op
// while the bus is inactive.
func (s *SyncService) Broadcast(msgType string, payload map[string]any) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.stats.Sent++
	s.mu.Unlock()

	message := Message{
		Type:        msgType,
		Payload:     payload,
		Timestamp:   s.now().UnixMilli(),
		OriginTabID: s.tabID,
	}
	wire, err := json.Marshal(&message)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.channel.Publish(ctx, wire)
}

// onWire decodes an incoming transport payload. Undecodable payloads are
// dropped silently and counted.
func (s *SyncService) onWire(payload []byte) {
	var message Message
	if err := json.Unmarshal(payload, &message); err != nil {
		s.mu.Lock()
		s.stats.Malformed++
		s.mu.Unlock()
		s.log.Warnf("syncbus: dropping malformed message: %v", err)
		return
	}
	s.ProcessMessage(&message)
}

// ProcessMessage re-emits a received message as a local event named after the
// message type. Malformed messages and self-echoes are dropped without
// invoking any subscriber.
func (s *SyncService) ProcessMessage(message *Message) {
	if !message.Valid() {
		s.mu.Lock()
		s.stats.Malformed++
		s.mu.Unlock()
		return
	}
	if message.OriginTabID == s.tabID {
		s.mu.Lock()
		s.stats.SelfEchoes++
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.stats.Received++
	handlers := make([]Handler, 0, len(s.handlers[message.Type]))
	for _, h := range s.handlers[message.Type] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(message.Payload)
	}
}

// On subscribes a local handler to a message type and returns a handle for Off.
func (s *SyncService) On(msgType string, handler Handler) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := idgen.MustGenerateSecureID("sync", 16)
	if s.handlers[msgType] == nil {
		s.handlers[msgType] = make(map[string]Handler)
	}
	s.handlers[msgType][id] = handler
	return id
}

// Off removes a local subscription. Unknown handles are ignored.
func (s *SyncService) Off(msgType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handlers, ok := s.handlers[msgType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(s.handlers, msgType)
		}
	}
}

// GetCapabilities reports the active transport.
func (s *SyncService) GetCapabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Capabilities{
		Transport: s.channel.Name(),
		Active:    s.active,
		TabID:     s.tabID,
	}
}

// GetStats returns bus counters.
func (s *SyncService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
