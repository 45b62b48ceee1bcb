package application

import (
	"context"
	"time"

	"request-gate/middleware/gate/domain"
)

// ProgressiveDelay retorna min(MaxDelay, max(0, count-DelayAfter) * DelayStep).
// É monotônica não decrescente em count.
func ProgressiveDelay(count int64, p domain.Profile) time.Duration {
	if !p.DelayEnabled() {
		return 0
	}
	extra := count - int64(p.DelayAfter)
	if extra <= 0 {
		return 0
	}
	// compara antes de multiplicar para não estourar
	if extra > int64(p.MaxDelay/p.DelayStep) {
		return p.MaxDelay
	}
	return time.Duration(extra) * p.DelayStep
}

// DelayController aplica o atraso antes do handler downstream.
// Nunca rejeita: só agenda a espera.
type DelayController struct{}

// Wait bloqueia só a goroutine desta requisição até d passar ou ctx encerrar.
// Se ctx encerrar antes (ex.: conexão caiu), retorna ctx.Err() e o chamador
// não deve executar o handler.
func (DelayController) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
