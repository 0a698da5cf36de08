package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValkeyLedger_SingleWinner(t *testing.T) {
	vk := newTestValkey(t)
	ledger := NewValkeyLedger(vk, time.Minute)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		winners int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.TryAcquire(ctx, "wamid.race")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestValkeyLedger_KeyLayoutAndTTL(t *testing.T) {
	vk := newTestValkey(t)
	ledger := NewValkeyLedger(vk, time.Minute)
	ctx := context.Background()

	ok, err := ledger.TryAcquire(ctx, "wamid.123")
	require.NoError(t, err)
	require.True(t, ok)

	inner := vk.Inner()
	key := vk.Key() + ":inflight:wamid.123"
	exists, err := inner.Do(ctx, inner.B().Exists().Key(key).Build()).AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	ttl, err := inner.Do(ctx, inner.B().Ttl().Key(key).Build()).AsInt64()
	require.NoError(t, err)
	assert.Greater(t, ttl, int64(0))
	assert.LessOrEqual(t, ttl, int64(60))
}

func TestValkeyLedger_ReleaseAndInFlight(t *testing.T) {
	vk := newTestValkey(t)
	ledger := NewValkeyLedger(vk, 0)
	ctx := context.Background()

	for _, id := range []string{"wamid.1", "wamid.2"} {
		ok, err := ledger.TryAcquire(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
	}
	n, err := ledger.InFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, ledger.Release(ctx, "wamid.1"))
	n, err = ledger.InFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a released id is new work again
	ok, err := ledger.TryAcquire(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValkeyLedger_EmptyID(t *testing.T) {
	vk := newTestValkey(t)
	ledger := NewValkeyLedger(vk, time.Minute)
	ctx := context.Background()

	ok, err := ledger.TryAcquire(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, ledger.Release(ctx, ""))

	n, err := ledger.InFlight(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
