// Package telemetry registers the Prometheus metrics exposed on the metrics
// side server (METRICS_PORT, path /metrics). The Gin router does not serve it.
//
// HTTP metrics are labelled by route template (c.FullPath()), never the raw
// URL, so item ids and QR codes do not inflate label cardinality.
package telemetry

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Ledger metrics. The outcome label is one of ok, not_found, invalid_input,
// negative_quantity, lock_timeout, storage_error.
//
//   - Lock contention: rate(inventory_adjustments_total{outcome="lock_timeout"}[5m])
//   - p99 adjustment latency: histogram_quantile(0.99, sum by (le) (rate(inventory_adjustment_duration_seconds_bucket[5m])))
var (
	AdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_adjustments_total",
			Help: "Total number of quantity adjustments attempted, by action type and outcome.",
		},
		[]string{"action_type", "outcome"},
	)

	AdjustmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_adjustment_duration_seconds",
			Help:    "Duration of quantity adjustments including lock wait, by action type.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"action_type"},
	)
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_processed_total",
			Help: "Background jobs processed, by job type and result (ok, retry, dlq).",
		},
		[]string{"type", "result"},
	)

	AlertEmailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_alert_emails_sent_total",
			Help: "Total number of low-stock and expiry alert emails delivered.",
		},
	)

	ItemCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "item_cache_requests_total",
			Help: "Item detail cache lookups, by result (hit, miss, stale_skip).",
		},
		[]string{"result"},
	)
)

// DBOpenConnections is sampled by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples pool statistics every 30 seconds until ctx is
// cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					log.Warn().Err(err).Msg("db stats collector: database unreachable, stopping collector")
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}

// LedgerObserver records every quantity adjustment.
type LedgerObserver struct{}

func (LedgerObserver) ObserveAdjustment(actionType, outcome string, elapsed time.Duration) {
	AdjustmentsTotal.WithLabelValues(actionType, outcome).Inc()
	AdjustmentDuration.WithLabelValues(actionType).Observe(elapsed.Seconds())
}
