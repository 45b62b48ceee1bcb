package application

import (
	"context"
	"strconv"

	"request-gate/middleware/gate/domain"
)

// StatusReporter é a consulta somente-leitura usada para diagnóstico.
type StatusReporter struct {
	Store domain.Store
	Keys  domain.Keys
}

func (r StatusReporter) Status(ctx context.Context, id domain.Identity) domain.ClientStatus {
	st := domain.ClientStatus{Identity: id}
	if r.Store == nil {
		return st
	}

	ban, banned, err := r.Store.Get(ctx, r.Keys.Ban(id))
	if err != nil {
		st.Degraded = true
	}
	if domain.Served(err) && banned {
		st.Banned = true
		st.BanReason = ban.Value
		st.BanExpiresAt = ban.ExpiresAt
	}

	v, ok, err := r.Store.Get(ctx, r.Keys.Violations(id))
	if err != nil {
		st.Degraded = true
	}
	if domain.Served(err) && ok {
		st.Violations, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	return st
}
