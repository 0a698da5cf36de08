package botengine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	ok, err := l.TryAcquire(ctx, "wamid.A")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.TryAcquire(ctx, "wamid.A")
	assert.False(t, ok, "second acquire of an in-flight id must fail")

	n, _ := l.InFlight(ctx)
	assert.Equal(t, 1, n)

	require.NoError(t, l.Release(ctx, "wamid.A"))
	ok, _ = l.TryAcquire(ctx, "wamid.A")
	assert.True(t, ok, "a released id is new work again")
}

func TestMemoryLedger_EmptyIDNeverAcquired(t *testing.T) {
	l := NewMemoryLedger()
	ok, err := l.TryAcquire(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLedger_ReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	assert.NoError(t, l.Release(ctx, "never-seen"))
	_, _ = l.TryAcquire(ctx, "x")
	assert.NoError(t, l.Release(ctx, "x"))
	assert.NoError(t, l.Release(ctx, "x"))
	n, _ := l.InFlight(ctx)
	assert.Equal(t, 0, n)
}

func TestMemoryLedger_ConcurrentAcquireSingleWinner(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	for round := 0; round < 20; round++ {
		id := fmt.Sprintf("wamid.%d", round)
		var winners int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := l.TryAcquire(ctx, id); ok {
					atomic.AddInt32(&winners, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners, "exactly one acquire must win for %s", id)
	}
}
