package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-aiwa/infrastructure/valkey"
)

// DefaultLedgerTTL expires entries whose process died before releasing them.
const DefaultLedgerTTL = 10 * time.Minute

// ValkeyLedger implements domainChat.IProcessingLedger with SET NX, so several
// instances behind the same webhook share one view of in-flight messages.
type ValkeyLedger struct {
	client *valkey.Client
	ttl    time.Duration
}

func NewValkeyLedger(client *valkey.Client, ttl time.Duration) *ValkeyLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &ValkeyLedger{client: client, ttl: ttl}
}

func (l *ValkeyLedger) key(messageID string) string {
	return l.client.Key("inflight", messageID)
}

func (l *ValkeyLedger) TryAcquire(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	inner := l.client.Inner()
	cmd := inner.B().Set().
		Key(l.key(messageID)).
		Value("1").
		Nx().
		Ex(l.ttl).
		Build()

	if err := inner.Do(ctx, cmd).Error(); err != nil {
		if valkey.IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire ledger entry: %w", err)
	}
	return true, nil
}

func (l *ValkeyLedger) Release(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	inner := l.client.Inner()
	if err := inner.Do(ctx, inner.B().Del().Key(l.key(messageID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to release ledger entry: %w", err)
	}
	return nil
}

func (l *ValkeyLedger) InFlight(ctx context.Context) (int, error) {
	return l.client.CountKeys(ctx, l.client.Key("inflight")+":*")
}
