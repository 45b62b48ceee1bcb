package application

import (
	"context"
	"log/slog"
	"time"

	"request-gate/middleware/gate/domain"
)

// Options configura um Gate. Todos os componentes recebem o mesmo store.
type Options struct {
	Keys        domain.Keys
	Policy      domain.BanPolicy
	Rules       domain.Rules
	LogCapacity int
	Log         *slog.Logger
	Stats       domain.StatsStore
	// Now é o relógio usado para Retry-After; nil usa time.Now.
	Now func() time.Time
}

// Gate é o pipeline em duas fases.
//
// Ordem por requisição: Screen (Ban Gate -> Heuristic Flagger), depois, para cada
// perfil, Admit (Window Counter -> Progressive Delay), Wait, handler downstream e
// por fim Complete com o status que será enviado (Violation Tracker / refund).
type Gate struct {
	Bans       BanGate
	Flagger    Flagger
	Counter    WindowCounter
	Delays     DelayController
	Violations ViolationTracker
	Reporter   StatusReporter

	Log   *slog.Logger
	Stats domain.StatsStore
	Now   func() time.Time
}

func New(store domain.Store, opts Options) *Gate {
	log := logger(opts.Log)
	return &Gate{
		Bans: BanGate{Store: store, Keys: opts.Keys, Log: log},
		Flagger: Flagger{
			Rules:    opts.Rules,
			Store:    store,
			Keys:     opts.Keys,
			Capacity: opts.LogCapacity,
			Log:      log,
			Stats:    opts.Stats,
		},
		Counter: WindowCounter{Store: store, Keys: opts.Keys, Log: log, Now: opts.Now},
		Violations: ViolationTracker{
			Store:  store,
			Keys:   opts.Keys,
			Policy: opts.Policy,
			Log:    log,
			Stats:  opts.Stats,
		},
		Reporter: StatusReporter{Store: store, Keys: opts.Keys},
		Log:      log,
		Stats:    opts.Stats,
		Now:      opts.Now,
	}
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Screen roda uma vez por requisição. Se o cliente está banido, o chamador deve
// rejeitar na hora e não chamar Admit (banidos não mexem em contadores).
func (g *Gate) Screen(ctx context.Context, meta domain.RequestMeta) domain.Screening {
	sc := domain.Screening{Identity: meta.Identity}

	sc.Ban = g.Bans.Check(ctx, meta.Identity)
	if sc.Ban.Banned {
		logger(g.Log).Warn("blocked banned client", "identity", meta.Identity, "reason", sc.Ban.Reason, "path", meta.Path)
		record(ctx, g.Stats, domain.StatsEvent{
			Kind: domain.EventBanned, Key: meta.Identity, Method: meta.Method, Path: meta.Path, Degraded: sc.Ban.Degraded,
		})
		return sc
	}

	sc.Suspicious = g.Flagger.Inspect(ctx, meta)
	return sc
}

// Admit é a pré-fase de um perfil: conta a requisição e calcula o atraso.
func (g *Gate) Admit(ctx context.Context, id domain.Identity, p domain.Profile) domain.Admission {
	win := g.Counter.CheckAndIncrement(ctx, id, p)
	adm := domain.Admission{
		Identity: id,
		Profile:  p,
		Window:   win,
		Degraded: win.Degraded,
	}

	if !win.Allowed {
		adm.Verdict = domain.VerdictRateLimited
		adm.RetryAfter = retryAfter(win.ResetAt, g.now())
		logger(g.Log).Warn("rate limit exceeded", "identity", id, "profile", p.Name, "count", win.Count)
		record(ctx, g.Stats, domain.StatsEvent{Kind: domain.EventRateLimited, Key: id, Profile: p.Name, Degraded: win.Degraded})
		return adm
	}

	adm.Verdict = domain.VerdictAllow
	adm.Delay = ProgressiveDelay(win.Count, p)
	record(ctx, g.Stats, domain.StatsEvent{Kind: domain.EventAllowed, Key: id, Profile: p.Name, Degraded: win.Degraded})
	return adm
}

// Wait aplica o atraso calculado em Admit. Erro significa que ctx encerrou e
// o handler downstream não deve rodar.
func (g *Gate) Wait(ctx context.Context, adm domain.Admission) error {
	if adm.Delay > 0 {
		record(ctx, g.Stats, domain.StatsEvent{Kind: domain.EventDelayed, Key: adm.Identity, Profile: adm.Profile.Name, Delay: adm.Delay})
	}
	return g.Delays.Wait(ctx, adm.Delay)
}

// Complete é a pós-fase, chamada pelo mesmo chamador de Admit com o status
// que será enviado ao cliente.
//
//   - rejeitada pelo Window Counter e status 429: registra a violação
//   - admitida, perfil SkipSuccessful e status de sucesso: devolve a unidade contada,
//     desde que a janela que contou a requisição ainda esteja aberta
func (g *Gate) Complete(ctx context.Context, adm domain.Admission, status int) domain.ViolationResult {
	switch adm.Verdict {
	case domain.VerdictRateLimited:
		if status == domain.StatusTooManyRequests {
			return g.Violations.RecordViolation(ctx, adm.Identity)
		}
	case domain.VerdictAllow:
		if !adm.Profile.SkipSuccessful || status <= 0 || status >= 400 {
			break
		}
		// a chave é a mesma em todas as janelas: devolver depois de ResetAt
		// descontaria uma requisição da janela seguinte
		if adm.Window.ResetAt.IsZero() || !g.now().Before(adm.Window.ResetAt) {
			break
		}
		g.Counter.Refund(ctx, adm.Identity, adm.Profile)
	}
	return domain.ViolationResult{}
}

// Status expõe o Status Reporter.
func (g *Gate) Status(ctx context.Context, id domain.Identity) domain.ClientStatus {
	return g.Reporter.Status(ctx, id)
}

// retryAfter arredonda para cima em segundos, com mínimo de 1s.
func retryAfter(resetAt, now time.Time) time.Duration {
	d := resetAt.Sub(now)
	if d <= time.Second {
		return time.Second
	}
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}
