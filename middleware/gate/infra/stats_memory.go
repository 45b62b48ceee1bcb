package infra

import (
	"context"
	"sync"

	"request-gate/middleware/gate/domain"
)

// Counters acumula eventos por tipo.
type Counters map[domain.EventKind]int64

// StatsSnapshot é a leitura agregada exposta no endpoint de diagnóstico.
type StatsSnapshot struct {
	Total     Counters            `json:"total"`
	ByProfile map[string]Counters `json:"byProfile"`
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e para o endpoint de diagnóstico em processo único.
//
// Não faz expiração e não é indicada para produção com muitas chaves.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     Counters
	byProfile map[string]Counters
	byKey     map[domain.Identity]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:     make(Counters),
		byProfile: make(map[string]Counters),
		byKey:     make(map[domain.Identity]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Kind]++
	if ev.Profile != "" {
		bump(s.byProfile, ev.Profile, ev.Kind)
	}
	if s.trackKeys && ev.Key != "" {
		bump(s.byKey, ev.Key, ev.Kind)
	}
	return nil
}

func bump[K comparable](m map[K]Counters, k K, kind domain.EventKind) {
	c, ok := m[k]
	if !ok {
		c = make(Counters)
		m[k] = c
	}
	c[kind]++
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.total)
}

func (s *MemoryStatsStore) ByProfile() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byProfile))
	for k, v := range s.byProfile {
		out[k] = clone(v)
	}
	return out
}

// Snapshot devolve uma cópia dos totais e dos contadores por perfil.
func (s *MemoryStatsStore) Snapshot(context.Context) (StatsSnapshot, error) {
	return StatsSnapshot{Total: s.Total(), ByProfile: s.ByProfile()}, nil
}

func (s *MemoryStatsStore) ByKey() map[domain.Identity]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Identity]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = clone(v)
	}
	return out
}

func clone(c Counters) Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
