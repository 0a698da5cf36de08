package chat

import (
	"context"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry of a conversation. Only user and assistant turns are persisted.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// InboundMessage is a text message already parsed out of a webhook delivery.
type InboundMessage struct {
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// SenderSuffix returns the last digits of the sender, enough to correlate logs
// without writing full phone numbers.
func (m InboundMessage) SenderSuffix() string {
	if len(m.SenderID) <= 4 {
		return m.SenderID
	}
	return "..." + m.SenderID[len(m.SenderID)-4:]
}

// IProcessingLedger tracks message ids currently being processed.
type IProcessingLedger interface {
	// TryAcquire marks the id as in flight. Returns false if it already was
	// or if the id is empty.
	TryAcquire(ctx context.Context, messageID string) (bool, error)
	Release(ctx context.Context, messageID string) error
	InFlight(ctx context.Context) (int, error)
}

// IHistoryStore keeps the per-sender conversation.
type IHistoryStore interface {
	GetTurns(ctx context.Context, senderID string) ([]Turn, error)
	AppendTurns(ctx context.Context, senderID string, turns ...Turn) error
}
