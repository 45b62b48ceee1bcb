package infra

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_IncrementKeepsFixedWindow(t *testing.T) {
	clk := newFakeClock()
	s := NewMemoryStore(WithClock(clk.Now))
	ctx := context.Background()

	c1, _ := s.Increment(ctx, "k", time.Minute)
	clk.Advance(30 * time.Second)
	c2, _ := s.Increment(ctx, "k", time.Minute)

	if c1.Value != 1 || c2.Value != 2 {
		t.Fatalf("expected 1 then 2, got %d then %d", c1.Value, c2.Value)
	}
	if !c2.ExpiresAt.Equal(c1.ExpiresAt) {
		t.Fatalf("expected expiry to stay at window start + ttl")
	}

	clk.Advance(30 * time.Second)
	c3, _ := s.Increment(ctx, "k", time.Minute)
	if c3.Value != 1 {
		t.Fatalf("expected fresh counter after window, got %d", c3.Value)
	}
}

func TestMemoryStore_IncrementRefreshExtendsTTL(t *testing.T) {
	clk := newFakeClock()
	s := NewMemoryStore(WithClock(clk.Now))
	ctx := context.Background()

	_, _ = s.IncrementRefresh(ctx, "v", time.Hour)
	clk.Advance(50 * time.Minute)
	c, _ := s.IncrementRefresh(ctx, "v", time.Hour)
	clk.Advance(50 * time.Minute)

	ent, ok, _ := s.Get(ctx, "v")
	if !ok || ent.Value != "2" {
		t.Fatalf("expected counter to survive thanks to refresh, got %v %q", ok, ent.Value)
	}
	if !c.ExpiresAt.Equal(clk.Now().Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", c.ExpiresAt)
	}
}

func TestMemoryStore_DecrementNeverNegativeNorRecreates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if n, _ := s.Decrement(ctx, "missing"); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatalf("decrement must not create the key")
	}

	_, _ = s.Increment(ctx, "k", time.Minute)
	n1, _ := s.Decrement(ctx, "k")
	n2, _ := s.Decrement(ctx, "k")
	if n1 != 0 || n2 != 0 {
		t.Fatalf("expected 0 and 0, got %d and %d", n1, n2)
	}
}

func TestMemoryStore_SetGetExpires(t *testing.T) {
	clk := newFakeClock()
	s := NewMemoryStore(WithClock(clk.Now))
	ctx := context.Background()

	_ = s.Set(ctx, "ban", "auto-banned", time.Hour)
	ent, ok, _ := s.Get(ctx, "ban")
	if !ok || ent.Value != "auto-banned" {
		t.Fatalf("expected value, got %v %q", ok, ent.Value)
	}

	clk.Advance(time.Hour)
	if _, ok, _ := s.Get(ctx, "ban"); ok {
		t.Fatalf("expected key to expire")
	}

	_ = s.Set(ctx, "x", "1", 0)
	_ = s.Delete(ctx, "x")
	if _, ok, _ := s.Get(ctx, "x"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestMemoryStore_AppendBoundedTrimsOldest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c", "d"} {
		_ = s.AppendBounded(ctx, "log", v, 3)
	}

	got, _ := s.Recent(ctx, "log", 0)
	want := []string{"d", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if top, _ := s.Recent(ctx, "log", 1); len(top) != 1 || top[0] != "d" {
		t.Fatalf("expected most recent entry first, got %v", top)
	}
}

func TestMemoryStore_CleanupRemovesExpiredEntries(t *testing.T) {
	clk := newFakeClock()
	s := NewMemoryStore(WithClock(clk.Now), WithCleanupEvery(0))
	ctx := context.Background()

	_, _ = s.Increment(ctx, "short", time.Millisecond)
	_ = s.Set(ctx, "forever", "1", 0)
	clk.Advance(time.Second)

	s.Cleanup()

	if s.Len() != 1 {
		t.Fatalf("expected only the non-expiring key to remain, got %d", s.Len())
	}
}

func TestMemoryStore_ConcurrentIncrementsAreNotLost(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Increment(ctx, "k", time.Minute)
		}()
	}
	wg.Wait()

	ent, _, _ := s.Get(ctx, "k")
	if ent.Value != "50" {
		t.Fatalf("expected 50, got %q", ent.Value)
	}
}
