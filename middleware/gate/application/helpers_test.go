package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"request-gate/middleware/gate/domain"
	"request-gate/middleware/gate/infra"
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

func newMemory(clk *fakeClock) *infra.MemoryStore {
	return infra.NewMemoryStore(infra.WithClock(clk.Now), infra.WithCleanupEvery(0))
}

// downStore simula o reputation store inalcançável em todas as operações.
type downStore struct{}

var errDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func fail(op string) error { return &domain.StoreError{Op: op, Err: errDown} }

func (downStore) Increment(context.Context, string, time.Duration) (domain.Counter, error) {
	return domain.Counter{}, fail("incr")
}
func (downStore) IncrementRefresh(context.Context, string, time.Duration) (domain.Counter, error) {
	return domain.Counter{}, fail("incr-refresh")
}
func (downStore) Decrement(context.Context, string) (int64, error) { return 0, fail("decr") }
func (downStore) Get(context.Context, string) (domain.Entry, bool, error) {
	return domain.Entry{}, false, fail("get")
}
func (downStore) Set(context.Context, string, string, time.Duration) error { return fail("set") }
func (downStore) Delete(context.Context, string) error                     { return fail("del") }
func (downStore) AppendBounded(context.Context, string, string, int) error { return fail("append") }
func (downStore) Recent(context.Context, string, int) ([]string, error)    { return nil, fail("lrange") }

var authProfile = domain.Profile{
	Name:   "auth",
	Window: 15 * time.Minute,
	Max:    5,
}

var apiProfile = domain.Profile{
	Name:   "api",
	Window: time.Minute,
	Max:    100,
}
