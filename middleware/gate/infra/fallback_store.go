package infra

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"request-gate/middleware/gate/domain"

	"golang.org/x/time/rate"
)

// FallbackStore tenta o store compartilhado e, se ele falhar, atende pelo store local.
//
// Contrato de erro: quando o primário falha e o local atende, o resultado é válido
// e o erro retornado casa com domain.ErrStoreUnavailable e domain.ErrFallbackServed
// (e ErrStoreTimeout, se for o caso). Cabe a cada chamador decidir o que fazer com
// o modo degradado; domain.Served(err) diz se o resultado pode ser usado.
//
// Durante uma queda, o primário só é sondado no ritmo de retry, para não pagar o
// timeout em toda requisição.
type FallbackStore struct {
	primary domain.Store
	local   domain.Store

	degraded atomic.Bool
	retry    *rate.Limiter

	log   *slog.Logger
	stats domain.StatsStore
}

type FallbackOption func(*FallbackStore)

// WithRetryEvery define o intervalo mínimo entre tentativas no primário durante uma queda.
func WithRetryEvery(d time.Duration) FallbackOption {
	return func(s *FallbackStore) {
		if d <= 0 {
			s.retry = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.retry = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithFallbackLogger(l *slog.Logger) FallbackOption {
	return func(s *FallbackStore) { s.log = l }
}

func WithFallbackStats(st domain.StatsStore) FallbackOption {
	return func(s *FallbackStore) { s.stats = st }
}

func NewFallbackStore(primary, local domain.Store, opts ...FallbackOption) *FallbackStore {
	s := &FallbackStore{
		primary: primary,
		local:   local,
		retry:   rate.NewLimiter(rate.Every(time.Second), 1),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*FallbackStore)(nil)

// Degraded informa se o store está atendendo pelo fallback local.
func (s *FallbackStore) Degraded() bool { return s.degraded.Load() }

// usePrimary decide se esta chamada deve ir ao primário.
func (s *FallbackStore) usePrimary() bool {
	if !s.degraded.Load() {
		return true
	}
	return s.retry.Allow()
}

func (s *FallbackStore) markDown(ctx context.Context, op string, err error) {
	if !s.degraded.CompareAndSwap(false, true) {
		return
	}
	// consome o token para a próxima sondagem respeitar o intervalo
	s.retry.Allow()
	s.log.Warn("reputation store unavailable, serving from local fallback",
		"op", op, "timeout", errors.Is(err, domain.ErrStoreTimeout), "error", err)
	s.record(ctx, domain.EventDegraded)
}

func (s *FallbackStore) markUp(ctx context.Context) {
	if !s.degraded.CompareAndSwap(true, false) {
		return
	}
	s.log.Info("reputation store recovered")
	s.record(ctx, domain.EventRecovered)
}

func (s *FallbackStore) record(ctx context.Context, kind domain.EventKind) {
	if s.stats == nil {
		return
	}
	_ = s.stats.Record(ctx, domain.StatsEvent{Kind: kind, Degraded: kind == domain.EventDegraded, At: time.Now()})
}

// degradedErr monta o erro explícito de modo degradado; o resultado local é válido.
func degradedErr(op, key string, cause error) error {
	if cause == nil {
		cause = domain.ErrStoreUnavailable
	}
	return &domain.StoreError{
		Op:       op,
		Key:      key,
		Timeout:  errors.Is(cause, domain.ErrStoreTimeout) || errors.Is(cause, context.DeadlineExceeded),
		Fallback: true,
		Err:      cause,
	}
}

// run executa fn no primário quando possível e cai para o local em caso de falha.
func run[T any](ctx context.Context, s *FallbackStore, op, key string, fn func(domain.Store) (T, error)) (T, error) {
	if s.primary == nil {
		return fn(s.local)
	}

	var primaryErr error
	if s.usePrimary() {
		v, err := fn(s.primary)
		if err == nil {
			s.markUp(ctx)
			return v, nil
		}
		if ctx.Err() != nil {
			// a requisição foi cancelada; não é queda do store
			return v, err
		}
		s.markDown(ctx, op, err)
		primaryErr = err
	}

	v, err := fn(s.local)
	if err != nil {
		return v, err
	}
	return v, degradedErr(op, key, primaryErr)
}

func (s *FallbackStore) Increment(ctx context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	return run(ctx, s, "incr", key, func(st domain.Store) (domain.Counter, error) {
		return st.Increment(ctx, key, ttl)
	})
}

func (s *FallbackStore) IncrementRefresh(ctx context.Context, key string, ttl time.Duration) (domain.Counter, error) {
	return run(ctx, s, "incr-refresh", key, func(st domain.Store) (domain.Counter, error) {
		return st.IncrementRefresh(ctx, key, ttl)
	})
}

func (s *FallbackStore) Decrement(ctx context.Context, key string) (int64, error) {
	return run(ctx, s, "decr", key, func(st domain.Store) (int64, error) {
		return st.Decrement(ctx, key)
	})
}

type getResult struct {
	ent   domain.Entry
	found bool
}

func (s *FallbackStore) Get(ctx context.Context, key string) (domain.Entry, bool, error) {
	r, err := run(ctx, s, "get", key, func(st domain.Store) (getResult, error) {
		ent, ok, err := st.Get(ctx, key)
		return getResult{ent: ent, found: ok}, err
	})
	return r.ent, r.found, err
}

func (s *FallbackStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := run(ctx, s, "set", key, func(st domain.Store) (struct{}, error) {
		return struct{}{}, st.Set(ctx, key, value, ttl)
	})
	return err
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	_, err := run(ctx, s, "del", key, func(st domain.Store) (struct{}, error) {
		return struct{}{}, st.Delete(ctx, key)
	})
	return err
}

func (s *FallbackStore) AppendBounded(ctx context.Context, key, value string, maxLen int) error {
	_, err := run(ctx, s, "append", key, func(st domain.Store) (struct{}, error) {
		return struct{}{}, st.AppendBounded(ctx, key, value, maxLen)
	})
	return err
}

func (s *FallbackStore) Recent(ctx context.Context, key string, n int) ([]string, error) {
	return run(ctx, s, "lrange", key, func(st domain.Store) ([]string, error) {
		return st.Recent(ctx, key, n)
	})
}
