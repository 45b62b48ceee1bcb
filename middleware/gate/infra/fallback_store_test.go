package infra

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"request-gate/middleware/gate/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore delega para um MemoryStore enquanto up=true.
type flakyStore struct {
	*MemoryStore
	up    atomic.Bool
	calls atomic.Int64
}

func newFlakyStore(up bool) *flakyStore {
	f := &flakyStore{MemoryStore: NewMemoryStore()}
	f.up.Store(up)
	return f
}

func (f *flakyStore) down(op string) error {
	f.calls.Add(1)
	if f.up.Load() {
		return nil
	}
	return &domain.StoreError{Op: op, Err: errors.New("connection refused")}
}

func (f *flakyStore) Increment(ctx context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	if err := f.down("incr"); err != nil {
		return domain.Counter{}, err
	}
	return f.MemoryStore.Increment(ctx, key, ttl)
}

func (f *flakyStore) Get(ctx context.Context, key string) (domain.Entry, bool, error) {
	if err := f.down("get"); err != nil {
		return domain.Entry{}, false, err
	}
	return f.MemoryStore.Get(ctx, key)
}

func TestFallbackStore_HealthyPrimaryHasNoError(t *testing.T) {
	primary := newFlakyStore(true)
	local := NewMemoryStore()
	s := NewFallbackStore(primary, local)

	c, err := s.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Value)
	assert.Equal(t, 0, local.Len(), "local store must not be touched while primary is healthy")
	assert.False(t, s.Degraded())
}

func TestFallbackStore_DownPrimaryServesLocalWithExplicitError(t *testing.T) {
	primary := newFlakyStore(false)
	stats := NewMemoryStatsStore()
	s := NewFallbackStore(primary, NewMemoryStore(), WithFallbackStats(stats), WithRetryEvery(time.Hour))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		c, err := s.Increment(ctx, "k", time.Minute)
		require.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.EqualValues(t, i, c.Value, "local fallback keeps counting")
	}

	assert.True(t, s.Degraded())
	assert.EqualValues(t, 1, primary.calls.Load(), "primary is only retried at the retry rate")
	assert.EqualValues(t, 1, stats.Total()[domain.EventDegraded], "degradation is reported once per outage")
}

func TestFallbackStore_RecoversWhenPrimaryAnswersAgain(t *testing.T) {
	primary := newFlakyStore(false)
	stats := NewMemoryStatsStore()
	s := NewFallbackStore(primary, NewMemoryStore(), WithFallbackStats(stats), WithRetryEvery(0))
	ctx := context.Background()

	_, _, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	_, _, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	primary.up.Store(true)
	_, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, s.Degraded())

	total := stats.Total()
	assert.EqualValues(t, 1, total[domain.EventDegraded])
	assert.EqualValues(t, 1, total[domain.EventRecovered])
}

func TestFallbackStore_NoPrimaryIsLocalOnly(t *testing.T) {
	s := NewFallbackStore(nil, NewMemoryStore())

	c, err := s.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Value)
}

func TestFallbackStore_DegradedErrorIsServed(t *testing.T) {
	s := NewFallbackStore(newFlakyStore(false), NewMemoryStore())

	_, err := s.Increment(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, domain.ErrFallbackServed)
	assert.True(t, domain.Served(err))
}
