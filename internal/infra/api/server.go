package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/config"
	"jobboard-billing/internal/infra/api/apiv1"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the full HTTP surface: /health, /metrics and /api/v1.
func NewRouter(srv *apiv1.Server, db Pinger, cfg config.HTTPConfig, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		Recover(logger),
		RequestLog(logger),
		Timeout(cfg.RequestTimeout),
	)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	apiv1.RegisterAPIV1(r, srv)
	return r
}

// NewHTTPServer wraps h in an http.Server listening on cfg.Port.
func NewHTTPServer(h http.Handler, cfg config.HTTPConfig) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
