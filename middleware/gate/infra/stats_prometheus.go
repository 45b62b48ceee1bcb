package infra

import (
	"context"

	"request-gate/middleware/gate/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PromStatsStore expõe os eventos do gate como métricas Prometheus.
// Identidades não viram label (cardinalidade).
type PromStatsStore struct {
	events   *prometheus.CounterVec
	delays   prometheus.Histogram
	degraded prometheus.Gauge
}

func NewPromStatsStore(reg prometheus.Registerer) (*PromStatsStore, error) {
	s := &PromStatsStore{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gate",
			Name:      "events_total",
			Help:      "Request gate events by kind and profile.",
		}, []string{"kind", "profile", "degraded"}),
		delays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gate",
			Name:      "progressive_delay_seconds",
			Help:      "Progressive delay applied before the downstream handler.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gate",
			Name:      "store_degraded",
			Help:      "1 while the shared reputation store is unavailable.",
		}),
	}
	for _, c := range []prometheus.Collector{s.events, s.delays, s.degraded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PromStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	switch ev.Kind {
	case domain.EventDegraded:
		s.degraded.Set(1)
	case domain.EventRecovered:
		s.degraded.Set(0)
	case domain.EventDelayed:
		s.delays.Observe(ev.Delay.Seconds())
	}

	degraded := "false"
	if ev.Degraded {
		degraded = "true"
	}
	s.events.WithLabelValues(string(ev.Kind), ev.Profile, degraded).Inc()
	return nil
}
