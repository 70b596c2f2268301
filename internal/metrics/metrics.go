// ABOUTME: Prometheus counters for the sync engine and an optional listener
// ABOUTME: Tracks fetch failures, refreshes, push events, reconnects, queries

package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchFailures counts per-endpoint poll failures that were recovered
	// with a default value.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_fetch_failures_total",
		Help: "Fan-out endpoint fetches that failed and fell back to defaults.",
	}, []string{"endpoint"})

	// Refreshes counts completed fan-out cycles that published a snapshot.
	Refreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_refreshes_total",
		Help: "Fan-out refresh cycles that published a snapshot to the store.",
	})

	// EmptyRefreshes counts cycles where every endpoint rejected.
	EmptyRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_empty_refreshes_total",
		Help: "Fan-out refresh cycles dropped because all endpoints failed.",
	})

	// PushEvents counts inbound push channel messages by type.
	PushEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_push_events_total",
		Help: "Push channel messages received, by event type.",
	}, []string{"type"})

	// PushDiscarded counts unparseable push payloads dropped silently.
	PushDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_push_discarded_total",
		Help: "Malformed push channel messages discarded.",
	})

	// PushReconnects counts reconnect attempts after a dropped connection.
	PushReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_push_reconnects_total",
		Help: "Push channel reconnect attempts.",
	})

	// DebouncedQueries counts user-search queries that actually fired.
	DebouncedQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_debounced_queries_total",
		Help: "Debounced search queries issued after the quiet period.",
	})
)

// Serve exposes /metrics on addr until the process exits. Errors are logged,
// not fatal: metrics are never allowed to take down the dashboard.
func Serve(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener stopped", "addr", addr, "error", err)
		}
	}()
}
