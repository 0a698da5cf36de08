// Package valkey holds the shared connection used by the processing ledger
// and the conversation history when several bot instances run side by side.
package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const (
	DefaultAddress        = "localhost:6379"
	DefaultKeyPrefix      = "aiwa:"
	DefaultConnectTimeout = 5 * time.Second

	scanBatch = 100
)

type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string        // namespace for every key, "aiwa:" when empty
	ConnectTimeout time.Duration // bounds the startup PING
}

// Client is a prefixed view over a valkey-go connection.
type Client struct {
	inner  valkeylib.Client
	prefix string
}

// NewClient connects and pings the server; it fails instead of returning a
// client that would error on the first message.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	inner, err := valkeylib.NewClient(valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", cfg.Address, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("ping valkey %s: %w", cfg.Address, err)
	}

	return &Client{inner: inner, prefix: normalizePrefix(cfg.KeyPrefix)}, nil
}

func normalizePrefix(prefix string) string {
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix
}

func (c *Client) Inner() valkeylib.Client {
	return c.inner
}

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key joins parts under the prefix: Key("inflight", "wamid.X") is
// "aiwa:inflight:wamid.X". Without parts it returns the bare namespace.
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.prefix, ":")
	}
	return c.prefix + strings.Join(parts, ":")
}

// Ping backs the valkey record of /api/health.
func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

// CountKeys counts keys matching pattern with SCAN so the server is never
// blocked the way KEYS would.
func (c *Client) CountKeys(ctx context.Context, pattern string) (int, error) {
	var count int
	err := c.scan(ctx, pattern, func(keys []string) error {
		count += len(keys)
		return nil
	})
	return count, err
}

// DeleteMatching removes every key matching pattern and reports how many went.
func (c *Client) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var deleted int
	err := c.scan(ctx, pattern, func(keys []string) error {
		if len(keys) == 0 {
			return nil
		}
		n, err := c.inner.Do(ctx, c.inner.B().Del().Key(keys...).Build()).AsInt64()
		if err != nil {
			return err
		}
		deleted += int(n)
		return nil
	})
	return deleted, err
}

func (c *Client) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		cmd := c.inner.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()
		entry, err := c.inner.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if err := fn(entry.Elements); err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

// IsNil reports a NIL reply, as returned for a missing key or a refused SET NX.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}
