package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/prayer-debt/internal/metrics"
)

const calculationsPrefix = "/prayer-debt/calculations/"

type RouterConfig struct {
	PrayerDebt *PrayerDebtHandler
	Webhooks   *WebhookHandler
	Metrics    *metrics.Metrics
	// Health reports whether storage is reachable. Nil always reports ok.
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireUser := RequireUser(cfg.Logger)

	handle := func(route string, h http.HandlerFunc) {
		mux.Handle(route, instrument(cfg.Metrics, route, h))
	}
	handleUser := func(route string, h http.HandlerFunc) {
		mux.Handle(route, instrument(cfg.Metrics, route, requireUser(h)))
	}

	if cfg.PrayerDebt != nil {
		handleUser("/prayer-debt/calculate", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.PrayerDebt.Calculate(w, r)
		})
		handleUser("/prayer-debt/snapshot", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.PrayerDebt.Snapshot(w, r)
		})
		handleUser("/prayer-debt/progress", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch {
				methodNotAllowed(w, http.MethodPatch)
				return
			}
			cfg.PrayerDebt.UpdateProgress(w, r)
		})
		handleUser("/prayer-debt/progress-history", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.PrayerDebt.ProgressHistory(w, r)
		})
		handleUser("/prayer-debt/calculations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.PrayerDebt.EnqueueCalculation(w, r)
		})
		handleUser(calculationsPrefix, func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, calculationsPrefix)
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.PrayerDebt.CalculationStatus(w, r.WithContext(ContextWithJobID(r.Context(), id)))
		})
	}

	if cfg.Webhooks != nil {
		handle("/webhooks/prayer-debt", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Webhooks.Receive(w, r)
		})
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics.Handler())
	}

	responder := newResponder(cfg.Logger)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

type healthResponse struct {
	Status string `json:"status"`
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
