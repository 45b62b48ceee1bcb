package application

import (
	"context"
	"log/slog"
	"time"

	"request-gate/middleware/gate/domain"
)

// WindowCounter é o contador de janela fixa por (identidade, classe de rota).
type WindowCounter struct {
	Store domain.Store
	Keys  domain.Keys
	Log   *slog.Logger
	// Now é usado só quando o store não informa a expiração.
	Now func() time.Time
}

func (c WindowCounter) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CheckAndIncrement incrementa o contador da janela corrente e compara com p.Max.
//
// A primeira requisição de uma janela nova começa em 1 e fixa o início da janela.
// Duas requisições simultâneas no limite podem ambas passar; isso é tolerado.
func (c WindowCounter) CheckAndIncrement(ctx context.Context, id domain.Identity, p domain.Profile) domain.WindowResult {
	if c.Store == nil {
		return domain.WindowResult{Allowed: true, Remaining: p.Max}
	}

	cnt, err := c.Store.Increment(ctx, c.Keys.Window(p.Name, id), p.Window)
	if !domain.Served(err) {
		logger(c.Log).Debug("window increment failed, failing open", "identity", id, "profile", p.Name, "error", err)
		return domain.WindowResult{Allowed: true, Remaining: p.Max, Degraded: true}
	}

	res := domain.WindowResult{
		Count:    cnt.Value,
		ResetAt:  cnt.ExpiresAt,
		Degraded: err != nil,
	}
	if res.ResetAt.IsZero() {
		res.ResetAt = c.now().Add(p.Window)
	}
	if cnt.Value <= int64(p.Max) {
		res.Allowed = true
		res.Remaining = p.Max - int(cnt.Value)
	}
	return res
}

// Refund desfaz o incremento de uma requisição já contada (perfil com SkipSuccessful).
// Best-effort: uma falha aqui só deixa o contador uma unidade acima.
func (c WindowCounter) Refund(ctx context.Context, id domain.Identity, p domain.Profile) {
	if c.Store == nil {
		return
	}
	if _, err := c.Store.Decrement(ctx, c.Keys.Window(p.Name, id)); !domain.Served(err) {
		logger(c.Log).Debug("window refund failed", "identity", id, "profile", p.Name, "error", err)
	}
}
