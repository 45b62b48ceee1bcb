package application

import (
	"context"
	"log/slog"

	"request-gate/middleware/gate/domain"
)

// BanGate consulta o store por um banimento ativo antes de qualquer outra etapa.
type BanGate struct {
	Store domain.Store
	Keys  domain.Keys
	Log   *slog.Logger
}

// Check é uma leitura O(1). Se nenhum store responder, falha aberto (não banido).
func (g BanGate) Check(ctx context.Context, id domain.Identity) domain.BanStatus {
	if g.Store == nil {
		return domain.BanStatus{}
	}

	ent, ok, err := g.Store.Get(ctx, g.Keys.Ban(id))
	if !domain.Served(err) {
		logger(g.Log).Debug("ban lookup failed, failing open", "identity", id, "error", err)
		return domain.BanStatus{Degraded: true}
	}

	st := domain.BanStatus{Degraded: err != nil}
	if !ok {
		return st
	}
	st.Banned = true
	st.Reason = ent.Value
	st.ExpiresAt = ent.ExpiresAt
	return st
}
