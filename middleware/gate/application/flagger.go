package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"request-gate/middleware/gate/domain"

	"github.com/google/uuid"
)

// DefaultLogCapacity é o tamanho padrão do log de atividade suspeita.
const DefaultLogCapacity = 1000

// Suspicious é a função pura de detecção. Retorna também o motivo do match.
//
// Predicados (disjunção):
//   - user-agent ausente
//   - user-agent contém um marcador de automação/varredura
//   - user-agent é um cliente de teste de API e algum segmento do caminho é de autenticação
func Suspicious(meta domain.RequestMeta, rules domain.Rules) (bool, string) {
	ua := strings.ToLower(strings.TrimSpace(meta.UserAgent))
	if ua == "" {
		return true, "missing user-agent"
	}
	for _, m := range rules.AutomationMarkers {
		if m != "" && strings.Contains(ua, strings.ToLower(m)) {
			return true, "automation marker: " + m
		}
	}

	if !isAuthPath(meta.Path, rules.AuthPaths) {
		return false, ""
	}
	for _, c := range rules.APIClients {
		if c != "" && strings.Contains(ua, strings.ToLower(c)) {
			return true, "api client on auth route: " + c
		}
	}
	return false, ""
}

// isAuthPath compara segmentos inteiros do caminho ("/api/users/login",
// "/login.php"), nunca substrings: "/api/authors" não é rota de autenticação.
func isAuthPath(p string, names []string) bool {
	for _, seg := range strings.Split(strings.ToLower(p), "/") {
		seg = strings.TrimSuffix(seg, path.Ext(seg))
		if seg == "" {
			continue
		}
		for _, n := range names {
			if n != "" && seg == strings.ToLower(n) {
				return true
			}
		}
	}
	return false
}

// Flagger detecta requisições suspeitas e grava no log de auditoria limitado.
// Nunca rejeita: detecção e bloqueio são desacoplados.
type Flagger struct {
	Rules    domain.Rules
	Store    domain.Store
	Keys     domain.Keys
	Capacity int
	Log      *slog.Logger
	Stats    domain.StatsStore

	NewID func() string
}

func (f Flagger) rules() domain.Rules {
	r := f.Rules
	if len(r.AutomationMarkers) == 0 && len(r.APIClients) == 0 && len(r.AuthPaths) == 0 {
		return domain.DefaultRules()
	}
	return r
}

// Inspect aplica Suspicious e, em caso de match, registra a entrada.
func (f Flagger) Inspect(ctx context.Context, meta domain.RequestMeta) bool {
	hit, reason := Suspicious(meta, f.rules())
	if !hit {
		return false
	}

	at := meta.At
	if at.IsZero() {
		at = time.Now()
	}
	ua := meta.UserAgent
	if ua == "" {
		ua = "Unknown"
	}
	entry := domain.SuspiciousEntry{
		ID:        f.newID(),
		Identity:  meta.Identity,
		UserAgent: ua,
		Path:      meta.Path,
		Method:    meta.Method,
		Reason:    reason,
		Timestamp: at.UTC(),
	}

	logger(f.Log).Warn("suspicious request",
		"identity", meta.Identity, "userAgent", ua, "path", meta.Path, "method", meta.Method, "reason", reason)
	record(ctx, f.Stats, domain.StatsEvent{
		Kind: domain.EventSuspicious, Key: meta.Identity, Method: meta.Method, Path: meta.Path, At: at,
	})

	if err := f.append(ctx, entry); err != nil {
		logger(f.Log).Debug("suspicious log append failed", "identity", meta.Identity, "error", err)
	}
	return true
}

func (f Flagger) newID() string {
	if f.NewID != nil {
		return f.NewID()
	}
	return uuid.NewString()
}

func (f Flagger) capacity() int {
	if f.Capacity <= 0 {
		return DefaultLogCapacity
	}
	return f.Capacity
}

func (f Flagger) append(ctx context.Context, e domain.SuspiciousEntry) error {
	if f.Store == nil {
		return nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLogAppend, err)
	}
	if err := f.Store.AppendBounded(ctx, f.Keys.Suspicious(), string(raw), f.capacity()); !domain.Served(err) {
		return fmt.Errorf("%w: %w", domain.ErrLogAppend, err)
	}
	return nil
}

// Recent lê até n entradas do log, da mais recente para a mais antiga.
// Entradas ilegíveis são ignoradas.
func (f Flagger) Recent(ctx context.Context, n int) ([]domain.SuspiciousEntry, error) {
	if f.Store == nil {
		return nil, nil
	}
	if n <= 0 || n > f.capacity() {
		n = f.capacity()
	}
	raw, err := f.Store.Recent(ctx, f.Keys.Suspicious(), n)
	if !domain.Served(err) {
		return nil, err
	}
	out := make([]domain.SuspiciousEntry, 0, len(raw))
	for _, r := range raw {
		var e domain.SuspiciousEntry
		if json.Unmarshal([]byte(r), &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}
