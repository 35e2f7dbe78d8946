// Package api serves series over a REST API.
//
// Every route below /api/v1 requires the X-API-Key header. Prometheus
// metrics are served unauthenticated at /metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	metricsRefreshInterval = 30 * time.Second
	shutdownTimeout        = 10 * time.Second
)

// NewRouter builds the HTTP handler for server. Metrics are exposed from
// gatherer at /metrics.
func NewRouter(server *Server, gatherer prometheus.Gatherer) http.Handler {
	metrics := server.metrics

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(server.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		r.Get("/series", metrics.InstrumentHandler("GET", "/api/v1/series", server.handleListSeries))
		r.Post("/series", metrics.InstrumentHandler("POST", "/api/v1/series", server.handleCreateSeries))

		r.Route("/series/{id}", func(r chi.Router) {
			r.Get("/", metrics.InstrumentHandler("GET", "/api/v1/series/{id}", server.handleGetSeries))
			r.Delete("/", metrics.InstrumentHandler("DELETE", "/api/v1/series/{id}", server.handleDeleteSeries))

			r.Post("/records", metrics.InstrumentHandler("POST", "/api/v1/series/{id}/records", server.handleAppendRecord))
			r.Get("/records", metrics.InstrumentHandler("GET", "/api/v1/series/{id}/records", server.handleListRecords))
			r.Get("/records/{index}", metrics.InstrumentHandler("GET", "/api/v1/series/{id}/records/{index}", server.handleGetRecord))

			r.Get("/check", metrics.InstrumentHandler("GET", "/api/v1/series/{id}/check", server.handleCheck))
			r.Post("/repair", metrics.InstrumentHandler("POST", "/api/v1/series/{id}/repair", server.handleRepair))
		})
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down gracefully
func StartServer(ctx context.Context, manager SeriesManager, config ServerConfig, logger logrus.FieldLogger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := NewServer(manager, config, NewMetrics(registry), logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Bind, config.Port),
		Handler:           NewRouter(server, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go server.startMetricsUpdater(ctx, metricsRefreshInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("starting enod REST API server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
