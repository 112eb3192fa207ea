package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/heatbox-map/internal/core/config"
	"github.com/mohammed-shakir/heatbox-map/internal/core/health"
	middleware "github.com/mohammed-shakir/heatbox-map/internal/core/middleware"
	"github.com/mohammed-shakir/heatbox-map/internal/core/router"
)

// Routes builds the HTTP surface of the map backend.
func Routes(logger *slog.Logger, h *router.Handlers, ready health.ReadinessReporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/layers", func(r chi.Router) {
		r.Get("/", h.Layers())
		r.Get("/{category}", h.Layer())
		r.Get("/{category}/features/{index}/popup", h.Popup())
	})
	r.Post("/evaluate", h.Evaluate())
	r.Get("/kommunen/{ags}", h.Kommune())
	r.Get("/hotspots", h.Hotspots())
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
