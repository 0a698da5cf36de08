package botengine

import (
	"context"
	"sync"

	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
)

// MemoryStore gestiona el historial de conversaciones en memoria, por remitente.
// With limit 0 a conversation grows for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	memory map[string][]domainChat.Turn // Key: senderID
	limit  int
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit < 0 {
		limit = 0
	}
	return &MemoryStore{
		memory: make(map[string][]domainChat.Turn),
		limit:  limit,
	}
}

func (s *MemoryStore) GetTurns(_ context.Context, senderID string) ([]domainChat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.memory[senderID]
	// Retornar copia para evitar race conditions
	cpy := make([]domainChat.Turn, len(turns))
	copy(cpy, turns)
	return cpy, nil
}

func (s *MemoryStore) AppendTurns(_ context.Context, senderID string, turns ...domainChat.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := append(s.memory[senderID], turns...)
	if s.limit > 0 && len(current) > s.limit {
		trimmed := make([]domainChat.Turn, s.limit)
		copy(trimmed, current[len(current)-s.limit:])
		current = trimmed
	}
	s.memory[senderID] = current
	return nil
}

func (s *MemoryStore) Clear(senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memory, senderID)
}

// Senders returns how many conversations are held.
func (s *MemoryStore) Senders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}
