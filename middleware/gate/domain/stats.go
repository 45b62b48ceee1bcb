package domain

import (
	"context"
	"time"
)

// EventKind classifica eventos de observabilidade do gate.
type EventKind string

const (
	EventAllowed     EventKind = "allowed"
	EventRateLimited EventKind = "rate_limited"
	EventBanned      EventKind = "banned"
	EventBanIssued   EventKind = "ban_issued"
	EventViolation   EventKind = "violation"
	EventSuspicious  EventKind = "suspicious"
	EventDelayed     EventKind = "delayed"
	EventDegraded    EventKind = "store_degraded"
	EventRecovered   EventKind = "store_recovered"
)

// StatsEvent é um evento de decisão do gate.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Kind     EventKind
	Key      Identity
	Profile  string
	Degraded bool

	Method string
	Path   string

	Delay time.Duration
	At    time.Time
}

// StatsStore é a estratégia de persistência para eventos do gate.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O chamador deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// MultiStats repassa o evento para todos os stores, retornando o primeiro erro.
type MultiStats []StatsStore

func (m MultiStats) Record(ctx context.Context, ev StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
