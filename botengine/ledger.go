package botengine

import (
	"context"
	"sync"
)

// MemoryLedger is the single-process processing ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{inFlight: make(map[string]struct{})}
}

func (l *MemoryLedger) TryAcquire(_ context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.inFlight[messageID]; ok {
		return false, nil
	}
	l.inFlight[messageID] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, messageID string) error {
	l.mu.Lock()
	delete(l.inFlight, messageID)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLedger) InFlight(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight), nil
}
