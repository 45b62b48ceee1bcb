package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"request-gate/internal/bootstrap"
	"request-gate/internal/config"
	"request-gate/middleware/gate"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exemplo: o gate embutido direto no webserver (sem proxy), protegendo uma API de loja.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	if os.Getenv("LISTEN_ADDR") == "" {
		cfg.ListenAddr = ":8081"
	}
	log := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	rt, err := bootstrap.Build(ctx, cfg, log, reg)
	if err != nil {
		log.Error("bootstrap error", "err", err)
		os.Exit(1)
	}
	defer func() { _ = rt.Close() }()

	r := chi.NewRouter()
	r.Get("/api/rate-limit/status", gate.StatusHandler(rt.HTTP))
	r.Get("/api/rate-limit/suspicious", gate.SuspiciousHandler(rt.HTTP))
	r.Get("/api/rate-limit/stats", gate.StatsHandler(rt.StatsView, log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware(rt.HTTP, rt.Selectors...))
		r.Get("/api/products", listProducts)
		r.Get("/api/products/{id}", getProduct)
		r.Post("/api/users/login", login)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening", "addr", cfg.ListenAddr, "redis", cfg.Redis.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}

type product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

var catalog = []product{
	{ID: 1, Name: "Keyboard", Price: 49.9},
	{ID: 2, Name: "Mouse", Price: 19.9},
	{ID: 3, Name: "Monitor", Price: 899.0},
}

func listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": catalog})
}

func getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	for _, p := range catalog {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login aceita um único usuário de demonstração.
func login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if c.Email != "demo@example.com" || c.Password != "demo123" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": uuid.NewString()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
