package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/AzielCF/az-aiwa/infrastructure/valkey"
)

// ValkeyHistoryStore keeps each conversation as a Valkey list of JSON turns.
type ValkeyHistoryStore struct {
	client *valkey.Client
	limit  int
}

// NewValkeyHistoryStore creates the store. limit 0 keeps every turn.
func NewValkeyHistoryStore(client *valkey.Client, limit int) *ValkeyHistoryStore {
	if limit < 0 {
		limit = 0
	}
	return &ValkeyHistoryStore{client: client, limit: limit}
}

func (s *ValkeyHistoryStore) key(senderID string) string {
	return s.client.Key("history", senderID)
}

func (s *ValkeyHistoryStore) GetTurns(ctx context.Context, senderID string) ([]domainChat.Turn, error) {
	inner := s.client.Inner()
	cmd := inner.B().Lrange().Key(s.key(senderID)).Start(0).Stop(-1).Build()
	values, err := inner.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsNil(err) {
			return []domainChat.Turn{}, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]domainChat.Turn, 0, len(values))
	for _, val := range values {
		var turn domainChat.Turn
		if err := json.Unmarshal([]byte(val), &turn); err != nil {
			logrus.Warnf("[ValkeyHistoryStore] Skipping unreadable turn: %v", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendTurns pushes all turns in a single RPUSH so an exchange is never
// stored half-written.
func (s *ValkeyHistoryStore) AppendTurns(ctx context.Context, senderID string, turns ...domainChat.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	elements := make([]string, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		elements = append(elements, string(data))
	}

	inner := s.client.Inner()
	key := s.key(senderID)
	if err := inner.Do(ctx, inner.B().Rpush().Key(key).Element(elements...).Build()).Error(); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	if s.limit > 0 {
		trim := inner.B().Ltrim().Key(key).Start(int64(-s.limit)).Stop(-1).Build()
		if err := inner.Do(ctx, trim).Error(); err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}
	return nil
}
