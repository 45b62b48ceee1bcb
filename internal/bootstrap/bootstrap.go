// Package bootstrap monta o gate a partir da configuração carregada.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"request-gate/internal/config"
	"request-gate/middleware/gate"
	"request-gate/middleware/gate/application"
	"request-gate/middleware/gate/domain"
	"request-gate/middleware/gate/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Runtime é o gate pronto para uso, com o que precisa ser fechado no shutdown.
type Runtime struct {
	Gate     *application.Gate
	Store    domain.Store
	Local    *infra.MemoryStore
	Fallback *infra.FallbackStore // nil sem Redis
	Redis    *redis.Client        // nil sem Redis
	Counters *infra.MemoryStatsStore
	// StatsView é a leitura exposta em /api/rate-limit/stats: Redis quando
	// as estatísticas são compartilhadas, senão os contadores locais.
	StatsView gate.StatsSource
	HTTP     gate.Options
	// Selectors vão para gate.Middleware: perfil global, depois o da rota.
	Selectors []gate.ProfileSelector
}

// Build cria os stores e o gate. O janitor do store local vive até ctx acabar.
// reg nil desliga as métricas Prometheus.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*Runtime, error) {
	rt := &Runtime{Counters: infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Stats.TrackKeys))}
	rt.StatsView = rt.Counters

	stats := domain.MultiStats{rt.Counters}
	if reg != nil {
		prom, err := infra.NewPromStatsStore(reg)
		if err != nil {
			return nil, err
		}
		stats = append(stats, prom)
	}

	rt.Local = infra.NewMemoryStore()
	rt.Local.StartJanitor(ctx)
	rt.Store = rt.Local

	if cfg.Redis.Enabled() {
		rdb, err := infra.NewRedisClient(infra.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.CallTimeout,
			ReadTimeout:  cfg.Redis.CallTimeout,
			WriteTimeout: cfg.Redis.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		rt.Redis = rdb

		if cfg.Stats.RedisEnabled {
			shared := infra.NewRedisStatsStore(
				rdb,
				infra.WithStatsPrefix(cfg.Stats.Prefix),
				infra.WithStatsTTL(cfg.Stats.TTL),
				infra.WithStatsBucket(cfg.Stats.Bucket),
				infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
			)
			stats = append(stats, shared)
			rt.StatsView = shared
		}

		primary := infra.NewRedisStore(rdb, infra.WithCallTimeout(cfg.Redis.CallTimeout))
		rt.Fallback = infra.NewFallbackStore(
			primary,
			rt.Local,
			infra.WithRetryEvery(cfg.Redis.RetryEvery),
			infra.WithFallbackLogger(log),
			infra.WithFallbackStats(stats),
		)
		rt.Store = rt.Fallback

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := primary.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable at startup, serving from local store", "addr", cfg.Redis.Addr, "err", err)
		}
		cancel()
	}

	rt.Gate = application.New(rt.Store, application.Options{
		Keys:        domain.Keys{Prefix: cfg.KeyPrefix},
		Policy:      cfg.Ban,
		Rules:       cfg.Rules,
		LogCapacity: cfg.LogCapacity,
		Log:         log,
		Stats:       stats,
	})
	rt.HTTP = gate.Options{
		Gate:                rt.Gate,
		KeyHeader:           cfg.KeyHeader,
		TrustXForwardedFor:  cfg.TrustXFF,
		AddRateLimitHeaders: cfg.AddRateLimitHeaders,
		Contact:             cfg.Contact,
		Log:                 log,
	}
	rt.Selectors = Selectors(cfg)
	return rt, nil
}

// Selectors traduz a configuração em seletores empilhados: o perfil global
// (DefaultProfile) vale para toda requisição e as rotas somam o próprio perfil.
func Selectors(cfg config.Config) []gate.ProfileSelector {
	var sels []gate.ProfileSelector
	if p, ok := cfg.Profiles[cfg.DefaultProfile]; ok {
		sels = append(sels, gate.Fixed(p))
	}
	if len(cfg.Routes) > 0 {
		routes := make([]gate.PathProfile, 0, len(cfg.Routes))
		for _, r := range cfg.Routes {
			routes = append(routes, gate.PathProfile{Prefix: r.Prefix, Profile: cfg.Profiles[r.Profile]})
		}
		sels = append(sels, gate.ByPathPrefix(domain.Profile{}, routes...))
	}
	return sels
}

// Close libera a conexão com o Redis.
func (rt *Runtime) Close() error {
	if rt.Redis == nil {
		return nil
	}
	return rt.Redis.Close()
}
