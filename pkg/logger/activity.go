package logger

import (
	"log/slog"
	"sync"
	"time"
)

// ActivityRecord is one completed call, as reported by a protocol's
// Voice/Slot EndRF/EndNET hook.
type ActivityRecord struct {
	Protocol    string
	SourceID    uint32
	DestID      uint32
	Timeslot    int
	StreamID    uint32
	StartedAt   time.Time
	EndedAt     time.Time
	PacketCount int
}

func (r ActivityRecord) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

// ActivityLog is a bounded in-memory ledger of recently completed
// calls, the repeater's own equivalent of a "last heard" list. It
// carries no persistence: the host process that embeds this module is
// responsible for longer-term storage if it wants one.
type ActivityLog struct {
	log      *slog.Logger
	mu       sync.Mutex
	records  []ActivityRecord
	capacity int
}

// NewActivityLog creates a log retaining at most capacity records.
func NewActivityLog(capacity int, log *slog.Logger) *ActivityLog {
	if capacity <= 0 {
		capacity = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &ActivityLog{log: WithComponent(log, "activity"), capacity: capacity}
}

// Record appends a completed call and emits it at info level.
func (a *ActivityLog) Record(rec ActivityRecord) {
	a.mu.Lock()
	a.records = append(a.records, rec)
	if len(a.records) > a.capacity {
		a.records = a.records[len(a.records)-a.capacity:]
	}
	a.mu.Unlock()

	a.log.Info("call ended",
		"protocol", rec.Protocol,
		"src", rec.SourceID,
		"dst", rec.DestID,
		"timeslot", rec.Timeslot,
		"stream_id", rec.StreamID,
		"duration", rec.Duration(),
		"packets", rec.PacketCount,
	)
}

// Recent returns the last n records, most recent last. n<=0 returns
// everything retained.
func (a *ActivityLog) Recent(n int) []ActivityRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 || n >= len(a.records) {
		out := make([]ActivityRecord, len(a.records))
		copy(out, a.records)
		return out
	}
	out := make([]ActivityRecord, n)
	copy(out, a.records[len(a.records)-n:])
	return out
}
