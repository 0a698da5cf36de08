package botmonitor

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	StageInbound = "inbound" // webhook accepted or rejected the message
	StageAgent   = "agent"
	StageTask    = "task" // the whole task, recorded once it ends

	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

const DefaultBufferSize = 200

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"sender"` // last digits only
	Intent     string    `json:"intent,omitempty"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

type Stats struct {
	TotalInbound    int64   `json:"total_inbound"`
	TotalSkipped    int64   `json:"total_skipped"`
	TotalAgentCalls int64   `json:"total_agent_calls"`
	TotalCompleted  int64   `json:"total_completed"`
	TotalErrors     int64   `json:"total_errors"`
	RecentEvents    []Event `json:"recent_events"`
}

// Monitor keeps counters and a ring buffer of the latest pipeline events.
// A nil *Monitor ignores every call.
type Monitor struct {
	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int
	ttl      time.Duration
	now      func() time.Time

	totalInbound    atomic.Int64
	totalSkipped    atomic.Int64
	totalAgentCalls atomic.Int64
	totalCompleted  atomic.Int64
	totalErrors     atomic.Int64
}

// New creates a monitor holding up to size events. Events older than ttl are
// left out of GetStats; ttl 0 keeps them until overwritten.
func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	if m == nil {
		return
	}
	e.Timestamp = m.now().UTC()

	switch e.Stage {
	case StageInbound:
		if e.Status == StatusSkipped {
			m.totalSkipped.Add(1)
		} else {
			m.totalInbound.Add(1)
		}
	case StageAgent:
		m.totalAgentCalls.Add(1)
	case StageTask:
		if e.Status == StatusOK {
			m.totalCompleted.Add(1)
		}
	}
	if e.Status == StatusError {
		m.totalErrors.Add(1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// GetStats returns the counters and the buffered events, oldest first.
func (m *Monitor) GetStats() Stats {
	if m == nil {
		return Stats{RecentEvents: []Event{}}
	}
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	res := make([]Event, 0, m.count)
	start := (m.idx - m.count + len(m.events)) % len(m.events)
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalInbound:    m.totalInbound.Load(),
		TotalSkipped:    m.totalSkipped.Load(),
		TotalAgentCalls: m.totalAgentCalls.Load(),
		TotalCompleted:  m.totalCompleted.Load(),
		TotalErrors:     m.totalErrors.Load(),
		RecentEvents:    res,
	}
}
