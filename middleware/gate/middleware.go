package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"request-gate/middleware/gate/application"
	"request-gate/middleware/gate/domain"
)

type Options struct {
	Gate                *application.Gate
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	AddRateLimitHeaders bool
	// Contact vai no corpo da resposta 403, se preenchido.
	Contact string
	Log     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.KeyFn == nil {
		o.KeyFn = DefaultKeyFunc(o.KeyHeader, o.TrustXForwardedFor)
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return o
}

type identityKey struct{}

// identity reaproveita a identidade resolvida pelo Guard, se houver.
func (o Options) identity(r *http.Request) domain.Identity {
	if id, ok := r.Context().Value(identityKey{}).(domain.Identity); ok {
		return id
	}
	id, err := domain.NormalizeIdentity(o.KeyFn(r))
	if err != nil {
		o.Log.Debug("request without client address, using shared bucket", "path", r.URL.Path)
	}
	return id
}

func (o Options) meta(r *http.Request, id domain.Identity) domain.RequestMeta {
	return domain.RequestMeta{
		Identity:  id,
		Method:    r.Method,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
		At:        time.Now(),
	}
}

// Guard é a etapa executada uma vez por requisição: Ban Gate e Heuristic Flagger.
// Banidos recebem 403 e nada mais é processado.
func Guard(opts Options) func(next http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		if opts.Gate == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := opts.identity(r)
			sc := opts.Gate.Screen(r.Context(), opts.meta(r, id))
			if sc.Ban.Banned {
				writeBanned(w, sc.Ban, opts.Contact, time.Now())
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileSelector escolhe o perfil de limite de uma requisição.
// ok=false deixa a requisição passar sem limite.
type ProfileSelector func(r *http.Request) (domain.Profile, bool)

// Fixed aplica sempre o mesmo perfil.
func Fixed(p domain.Profile) ProfileSelector {
	return func(*http.Request) (domain.Profile, bool) { return p, true }
}

// PathProfile associa um prefixo de caminho a um perfil.
type PathProfile struct {
	Prefix  string
	Profile domain.Profile
}

// ByPathPrefix escolhe o perfil do prefixo mais longo; sem match, usa def (se tiver nome).
func ByPathPrefix(def domain.Profile, routes ...PathProfile) ProfileSelector {
	return func(r *http.Request) (domain.Profile, bool) {
		best := -1
		var chosen domain.Profile
		for _, rt := range routes {
			if strings.HasPrefix(r.URL.Path, rt.Prefix) && len(rt.Prefix) > best {
				best = len(rt.Prefix)
				chosen = rt.Profile
			}
		}
		if best >= 0 {
			return chosen, true
		}
		return def, def.Name != ""
	}
}

// Limit aplica um perfil fixo (Window Counter + atraso progressivo + violações).
func Limit(opts Options, p domain.Profile) func(next http.Handler) http.Handler {
	return LimitBy(opts, Fixed(p))
}

// LimitBy é o Limit com perfil escolhido por requisição.
func LimitBy(opts Options, sel ProfileSelector) func(next http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		if opts.Gate == nil || sel == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := sel(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			g := opts.Gate
			id := opts.identity(r)
			// a pós-fase roda mesmo se o cliente derrubar a conexão
			bg := context.WithoutCancel(r.Context())

			adm := g.Admit(r.Context(), id, p)
			if opts.AddRateLimitHeaders {
				setRateLimitHeaders(w, adm, time.Now())
			}

			if !adm.Allowed() {
				writeRateLimited(w, adm, time.Now())
				g.Complete(bg, adm, http.StatusTooManyRequests)
				return
			}

			// desistência durante o atraso não devolve a contagem nem gera violação
			if err := g.Wait(r.Context(), adm); err != nil {
				opts.Log.Debug("client went away during progressive delay",
					"identity", id, "profile", p.Name, "delay", adm.Delay)
				return
			}

			if !p.SkipSuccessful {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			g.Complete(bg, adm, rec.status)
		})
	}
}

// Middleware encadeia Guard e um LimitBy por seletor, na ordem dada (o primeiro
// fica mais externo). Cada perfil selecionado conta a requisição de forma
// independente: um limite global seguido de um limite por rota, por exemplo.
func Middleware(opts Options, sels ...ProfileSelector) func(next http.Handler) http.Handler {
	guard := Guard(opts)
	limits := make([]func(http.Handler) http.Handler, 0, len(sels))
	for _, sel := range sels {
		limits = append(limits, LimitBy(opts, sel))
	}
	return func(next http.Handler) http.Handler {
		h := next
		for i := len(limits) - 1; i >= 0; i-- {
			h = limits[i](h)
		}
		return guard(h)
	}
}
