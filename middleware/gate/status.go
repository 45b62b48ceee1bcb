package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"request-gate/middleware/gate/domain"
	"request-gate/middleware/gate/infra"
)

type statusBody struct {
	IP           string     `json:"ip"`
	Blacklisted  bool       `json:"blacklisted"`
	Violations   int64      `json:"violations"`
	BanReason    string     `json:"banReason,omitempty"`
	BanExpiresAt *time.Time `json:"banExpiresAt,omitempty"`
	Message      string     `json:"message"`
	Store        string     `json:"store"`
}

// StatusHandler expõe o Status Reporter para a identidade do próprio chamador.
// Somente leitura.
func StatusHandler(opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Gate == nil {
			writeJSON(w, http.StatusServiceUnavailable, rejection{Error: "Unavailable", Message: "request gate is not configured"})
			return
		}

		st := opts.Gate.Status(r.Context(), opts.identity(r))
		body := statusBody{
			IP:          string(st.Identity),
			Blacklisted: st.Banned,
			Violations:  st.Violations,
			BanReason:   st.BanReason,
			Message:     "Your IP is in good standing",
			Store:       "connected",
		}
		if st.Banned {
			body.Message = "Your IP is currently blacklisted"
			if !st.BanExpiresAt.IsZero() {
				exp := st.BanExpiresAt.UTC()
				body.BanExpiresAt = &exp
			}
		}
		if st.Degraded {
			body.Store = "degraded"
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// SuspiciousHandler lista as entradas mais recentes do log de atividade suspeita.
// Aceita ?limit=N.
func SuspiciousHandler(opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Gate == nil {
			writeJSON(w, http.StatusServiceUnavailable, rejection{Error: "Unavailable", Message: "request gate is not configured"})
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, rejection{Error: "Bad Request", Message: "limit must be a positive integer"})
				return
			}
			limit = n
		}

		entries, err := opts.Gate.Flagger.Recent(r.Context(), limit)
		if err != nil {
			opts.Log.Warn("error reading suspicious activity log", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, rejection{Error: "Unavailable", Message: "suspicious activity log is unavailable"})
			return
		}
		if entries == nil {
			entries = []domain.SuspiciousEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(entries), "entries": entries})
	}
}

// StatsSource fornece a leitura agregada de eventos (memória local ou Redis).
type StatsSource interface {
	Snapshot(ctx context.Context) (infra.StatsSnapshot, error)
}

// StatsHandler publica os contadores de eventos do gate.
func StatsHandler(src StatsSource, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			writeJSON(w, http.StatusServiceUnavailable, rejection{Error: "Unavailable", Message: "stats are not enabled"})
			return
		}
		snap, err := src.Snapshot(r.Context())
		if err != nil {
			log.Warn("error reading gate stats", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, rejection{Error: "Unavailable", Message: "stats are unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
