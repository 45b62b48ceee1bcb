package application

import (
	"context"
	"log/slog"

	"request-gate/middleware/gate/domain"
)

// ViolationTracker conta rejeições por identidade e escala para banimento.
type ViolationTracker struct {
	Store  domain.Store
	Keys   domain.Keys
	Policy domain.BanPolicy
	Log    *slog.Logger
	Stats  domain.StatsStore
}

func (t ViolationTracker) policy() domain.BanPolicy {
	p := t.Policy
	def := domain.DefaultBanPolicy()
	if p.Threshold <= 0 {
		p.Threshold = def.Threshold
	}
	if p.BanDuration <= 0 {
		p.BanDuration = def.BanDuration
	}
	if p.ViolationWindow <= 0 {
		p.ViolationWindow = def.ViolationWindow
	}
	if p.Reason == "" {
		p.Reason = def.Reason
	}
	return p
}

// RecordViolation incrementa o contador de violações e renova seu TTL.
// Ao atingir Threshold, grava o banimento com TTL = BanDuration.
//
// O TTL é renovado a cada violação, inclusive a que gera o ban: um cliente que
// continua atacando nunca vê a janela de violações expirar.
// O ban não zera o contador de violações.
func (t ViolationTracker) RecordViolation(ctx context.Context, id domain.Identity) domain.ViolationResult {
	if t.Store == nil {
		return domain.ViolationResult{}
	}
	pol := t.policy()
	log := logger(t.Log)

	cnt, err := t.Store.IncrementRefresh(ctx, t.Keys.Violations(id), pol.ViolationWindow)
	if !domain.Served(err) {
		log.Error("error tracking violation", "identity", id, "error", err)
		return domain.ViolationResult{Degraded: true}
	}

	res := domain.ViolationResult{Count: cnt.Value, Degraded: err != nil}
	log.Warn("rate limit violation", "identity", id, "violations", cnt.Value)
	record(ctx, t.Stats, domain.StatsEvent{Kind: domain.EventViolation, Key: id, Degraded: res.Degraded})

	if cnt.Value < pol.Threshold {
		return res
	}

	err = t.Store.Set(ctx, t.Keys.Ban(id), pol.Reason, pol.BanDuration)
	if !domain.Served(err) {
		log.Error("error issuing ban", "identity", id, "error", err)
		res.Degraded = true
		return res
	}
	res.Banned = true
	res.Degraded = res.Degraded || err != nil
	log.Warn("auto-banned client", "identity", id, "violations", cnt.Value, "duration", pol.BanDuration)
	record(ctx, t.Stats, domain.StatsEvent{Kind: domain.EventBanIssued, Key: id, Degraded: res.Degraded})
	return res
}
