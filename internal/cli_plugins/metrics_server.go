package cliplugins

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"valkyrie/internal/metrics"
	"valkyrie/internal/util/logger/sl"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

// serveMetrics exposes /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer, log *slog.Logger) {
	const op = "cliplugins.serveMetrics"
	log = log.With(slog.String("op", op))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics exporter started", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics exporter failed", sl.Err(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics exporter shutdown", sl.Err(err))
		}
	}()
}
