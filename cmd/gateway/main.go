package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"request-gate/internal/bootstrap"
	"request-gate/internal/config"
	"request-gate/middleware/gate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	log := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("gateway stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.UpstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("proxy error", "path", r.URL.Path, "err", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := bootstrap.Build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	admin := chi.NewRouter()
	mountAdmin(admin, reg, rt)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	// status fica fora do gate para que clientes banidos consultem a própria situação
	r.Get("/api/rate-limit/status", gate.StatusHandler(rt.HTTP))
	if cfg.MetricsAddr == "" {
		mountAdmin(r, reg, rt)
	}
	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware(rt.HTTP, rt.Selectors...))
		r.Handle("/*", proxy)
	})

	servers := []*http.Server{newServer(cfg.ListenAddr, r)}
	if cfg.MetricsAddr != "" {
		servers = append(servers, newServer(cfg.MetricsAddr, admin))
	}

	log.Info("gateway listening", "addr", cfg.ListenAddr, "upstream", target.String(), "metrics", cfg.MetricsAddr)
	log.Info("gate",
		"redis", cfg.Redis.Addr,
		"default_profile", cfg.DefaultProfile,
		"routes", len(cfg.Routes),
		"ban_threshold", cfg.Ban.Threshold,
		"ban_duration", cfg.Ban.BanDuration,
		"trust_xff", cfg.TrustXFF,
		"key_header", cfg.KeyHeader)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

// mountAdmin registra as rotas operacionais.
func mountAdmin(r chi.Router, reg *prometheus.Registry, rt *bootstrap.Runtime) {
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/api/rate-limit/stats", gate.StatsHandler(rt.StatsView, rt.HTTP.Log))
	r.Get("/api/rate-limit/suspicious", gate.SuspiciousHandler(rt.HTTP))
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// o atraso progressivo pode chegar a alguns segundos antes do upstream
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}
}
