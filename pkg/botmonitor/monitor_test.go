package botmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_CountersByStage(t *testing.T) {
	m := New(10, 0)
	m.Record(Event{MessageID: "a", Stage: StageInbound, Status: StatusOK})
	m.Record(Event{MessageID: "a", Stage: StageInbound, Status: StatusSkipped})
	m.Record(Event{MessageID: "a", Stage: StageAgent, Status: StatusOK})
	m.Record(Event{MessageID: "a", Stage: StageAgent, Status: StatusError, Error: "timeout"})
	m.Record(Event{MessageID: "a", Stage: StageTask, Status: StatusOK})
	m.Record(Event{MessageID: "b", Stage: StageTask, Status: StatusError})

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.TotalInbound)
	assert.Equal(t, int64(1), stats.TotalSkipped)
	assert.Equal(t, int64(2), stats.TotalAgentCalls)
	assert.Equal(t, int64(1), stats.TotalCompleted)
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Len(t, stats.RecentEvents, 6)
}

func TestMonitor_RingBufferKeepsLatest(t *testing.T) {
	m := New(3, 0)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		m.Record(Event{MessageID: id, Stage: StageInbound, Status: StatusOK})
	}

	events := m.GetStats().RecentEvents
	require.Len(t, events, 3)
	assert.Equal(t, "3", events[0].MessageID)
	assert.Equal(t, "5", events[2].MessageID)
}

func TestMonitor_TTLHidesOldEvents(t *testing.T) {
	m := New(5, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.Record(Event{MessageID: "old", Stage: StageInbound, Status: StatusOK})

	now = now.Add(2 * time.Minute)
	m.Record(Event{MessageID: "new", Stage: StageInbound, Status: StatusOK})

	events := m.GetStats().RecentEvents
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].MessageID)
}

func TestMonitor_NilIsSafe(t *testing.T) {
	var m *Monitor
	m.Record(Event{Stage: StageTask, Status: StatusOK})
	assert.Empty(t, m.GetStats().RecentEvents)
}
