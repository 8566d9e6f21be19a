package syncbus

// Message types carried across instances. Consumers must treat each message
// as an idempotent, self-contained fact; delivery order across transports is
// not guaranteed.
const (
	TypeSessionExpired   = "session-expired"
	TypeSessionExtended  = "session-extended"
	TypeLogout           = "logout"
	TypeLogin            = "login"
	TypeActivityUpdate   = "activity-update"
	TypeWarningShown     = "warning-shown"
	TypeWarningDismissed = "warning-dismissed"
)

// Message is the cross-instance wire contract. It is created by the sending
// instance and never mutated after creation; both transports serialize it
// identically.
type Message struct {
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload"`
	Timestamp   int64          `json:"timestamp"` // unix ms at send time
	OriginTabID string         `json:"originTabId"`
}

// Valid reports whether the message is well-formed enough to process.
func (m *Message) Valid() bool {
	return m != nil && m.Type != ""
}
