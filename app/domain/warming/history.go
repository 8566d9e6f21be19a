package warming

import "time"

// HistoryRecord is one observed warming run. History is observational only,
// never authoritative state.
type HistoryRecord struct {
	Trigger     string
	ScopeKey    string
	At          time.Time
	WarmedCount int
	FailedCount int
	Duration    time.Duration
}

// historyRing is a bounded append-only buffer; the oldest record is dropped
// beyond capacity. Access is guarded by the owning service's mutex.
type historyRing struct {
	capacity int
	records  []HistoryRecord
}

func newHistoryRing(capacity int) *historyRing {
	if capacity <= 0 {
		capacity = 50
	}
	return &historyRing{capacity: capacity}
}

func (h *historyRing) append(record HistoryRecord) {
	h.records = append(h.records, record)
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
}

func (h *historyRing) len() int {
	return len(h.records)
}

// forScope returns up to n most recent records for the scope, newest last.
func (h *historyRing) forScope(scopeKey string, n int) []HistoryRecord {
	var out []HistoryRecord
	for _, record := range h.records {
		if record.ScopeKey == scopeKey {
			out = append(out, record)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
