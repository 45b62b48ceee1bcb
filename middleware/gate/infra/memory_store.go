package infra

import (
	"context"
	"strconv"
	"sync"
	"time"

	"request-gate/middleware/gate/domain"
)

// MemoryStore é o reputation store local ao processo (modo degradado e deploys
// de processo único), com expiração por chave e limpeza periódica.
type MemoryStore struct {
	mu           sync.Mutex
	entries      map[string]*memEntry
	now          func() time.Time
	cleanupEvery time.Duration
}

type memEntry struct {
	value     string
	list      []string
	expiresAt time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type MemoryOption func(*MemoryStore)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:      make(map[string]*memEntry),
		now:          time.Now,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*MemoryStore)(nil)

// live retorna a entrada viva ou nil. Chamar com mu travado.
func (s *MemoryStore) live(key string, now time.Time) *memEntry {
	ent, ok := s.entries[key]
	if !ok {
		return nil
	}
	if ent.expired(now) {
		delete(s.entries, key)
		return nil
	}
	return ent
}

func (s *MemoryStore) incr(key string, ttl time.Duration, refresh bool) domain.Counter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.live(key, now)
	if ent == nil {
		ent = &memEntry{value: "0"}
		s.entries[key] = ent
	}
	n, _ := strconv.ParseInt(ent.value, 10, 64)
	n++
	ent.value = strconv.FormatInt(n, 10)
	if ttl > 0 && (refresh || ent.expiresAt.IsZero()) {
		ent.expiresAt = now.Add(ttl)
	}
	return domain.Counter{Value: n, ExpiresAt: ent.expiresAt}
}

func (s *MemoryStore) Increment(_ context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	return s.incr(key, ttl, false), nil
}

func (s *MemoryStore) IncrementRefresh(_ context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	return s.incr(key, ttl, true), nil
}

func (s *MemoryStore) Decrement(_ context.Context, key string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.live(key, now)
	if ent == nil {
		return 0, nil
	}
	n, _ := strconv.ParseInt(ent.value, 10, 64)
	if n > 0 {
		n--
	}
	ent.value = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (domain.Entry, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.live(key, now)
	if ent == nil || ent.list != nil {
		return domain.Entry{}, false, nil
	}
	return domain.Entry{Value: ent.value, ExpiresAt: ent.expiresAt}, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	ent := &memEntry{value: value}
	if ttl > 0 {
		ent.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = ent
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) AppendBounded(_ context.Context, key, value string, maxLen int) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.live(key, now)
	if ent == nil {
		ent = &memEntry{}
		s.entries[key] = ent
	}
	// mais recente primeiro, como LPUSH
	ent.list = append([]string{value}, ent.list...)
	if maxLen > 0 && len(ent.list) > maxLen {
		ent.list = ent.list[:maxLen]
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, key string, n int) ([]string, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.live(key, now)
	if ent == nil {
		return nil, nil
	}
	if n <= 0 || n > len(ent.list) {
		n = len(ent.list)
	}
	out := make([]string, n)
	copy(out, ent.list[:n])
	return out, nil
}

// Len retorna o número de chaves guardadas (inclui expiradas ainda não limpas).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.expired(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que remove chaves expiradas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
