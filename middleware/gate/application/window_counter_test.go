package application_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"request-gate/middleware/gate/application"
	"request-gate/middleware/gate/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowCounter_RejectsRequestAfterMax(t *testing.T) {
	clk := newFakeClock()
	c := application.WindowCounter{Store: newMemory(clk)}
	ctx := context.Background()

	for i := 1; i <= authProfile.Max; i++ {
		res := c.CheckAndIncrement(ctx, "1.1.1.1", authProfile)
		require.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, authProfile.Max-i, res.Remaining)
		assert.EqualValues(t, i, res.Count)
	}

	res := c.CheckAndIncrement(ctx, "1.1.1.1", authProfile)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, clk.Now().Add(authProfile.Window), res.ResetAt)
}

func TestWindowCounter_FreshWindowStartsAtOne(t *testing.T) {
	clk := newFakeClock()
	c := application.WindowCounter{Store: newMemory(clk)}
	ctx := context.Background()

	for i := 0; i < authProfile.Max+2; i++ {
		c.CheckAndIncrement(ctx, "1.1.1.1", authProfile)
	}
	clk.Advance(authProfile.Window)

	res := c.CheckAndIncrement(ctx, "1.1.1.1", authProfile)
	assert.True(t, res.Allowed)
	assert.EqualValues(t, 1, res.Count)
}

func TestWindowCounter_ProfilesAndClientsAreIndependent(t *testing.T) {
	clk := newFakeClock()
	c := application.WindowCounter{Store: newMemory(clk)}
	ctx := context.Background()

	for i := 0; i < authProfile.Max+1; i++ {
		c.CheckAndIncrement(ctx, "1.1.1.1", authProfile)
	}

	assert.EqualValues(t, 1, c.CheckAndIncrement(ctx, "1.1.1.1", apiProfile).Count)
	assert.EqualValues(t, 1, c.CheckAndIncrement(ctx, "2.2.2.2", authProfile).Count)
}

func TestWindowCounter_RefundUndoesCount(t *testing.T) {
	clk := newFakeClock()
	c := application.WindowCounter{Store: newMemory(clk)}
	ctx := context.Background()

	c.CheckAndIncrement(ctx, "1.1.1.1", authProfile)
	c.Refund(ctx, "1.1.1.1", authProfile)

	assert.EqualValues(t, 1, c.CheckAndIncrement(ctx, "1.1.1.1", authProfile).Count)
}

func TestWindowCounter_StoreDownFailsOpen(t *testing.T) {
	c := application.WindowCounter{Store: downStore{}}

	for i := 0; i < 10; i++ {
		res := c.CheckAndIncrement(context.Background(), "1.1.1.1", authProfile)
		assert.True(t, res.Allowed)
		assert.True(t, res.Degraded)
	}
}

func TestWindowCounter_ConcurrentRequestsDoNotLoseUpdates(t *testing.T) {
	clk := newFakeClock()
	c := application.WindowCounter{Store: newMemory(clk)}
	p := domain.Profile{Name: "burst", Window: time.Minute, Max: 20}

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.CheckAndIncrement(context.Background(), "1.1.1.1", p).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 20, allowed.Load())
}
