package application

import (
	"context"
	"log/slog"
	"time"

	"request-gate/middleware/gate/domain"
)

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// record grava o evento como best-effort.
func record(ctx context.Context, st domain.StatsStore, ev domain.StatsEvent) {
	if st == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_ = st.Record(ctx, ev)
}
