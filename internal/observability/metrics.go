// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the escrow tooling.
type Metrics struct {
	// Watcher metrics
	AccountUpdatesReceived prometheus.Counter
	RecordsStored          prometheus.Counter
	DuplicateRecords       prometheus.Counter
	DecodeErrors           *prometheus.CounterVec
	WatchedAccounts        prometheus.Gauge
	WSReconnects           prometheus.Counter
	HighestSlotSeen        prometheus.Gauge

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastUpdateTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_escrow_kit"
	}

	return &Metrics{
		// Watcher metrics
		AccountUpdatesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "account_updates_received_total",
			Help:      "Total number of escrow account updates received over WebSocket",
		}),
		RecordsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "records_stored_total",
			Help:      "Total number of escrow state transitions stored",
		}),
		DuplicateRecords: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "duplicate_records_total",
			Help:      "Total number of updates skipped as already-stored (address, slot) pairs",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "decode_errors_total",
			Help:      "Total number of account data decode errors by type",
		}, []string{"error_type"}),
		WatchedAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "watched_accounts",
			Help:      "Current number of escrow accounts with an active subscription",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen in notifications",
		}),

		// Chain metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of Solana RPC call errors by method",
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		// Health metrics
		LastUpdateTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_update_timestamp",
			Help:      "Unix timestamp of the last stored escrow update",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAccountUpdate increments the account updates counter and tracks the
// highest slot seen.
func RecordAccountUpdate(slot uint64) {
	DefaultMetrics.AccountUpdatesReceived.Inc()
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordStored records a stored transition and the wall-clock time it landed.
func RecordStored(observedAtMillis int64) {
	DefaultMetrics.RecordsStored.Inc()
	DefaultMetrics.LastUpdateTimestamp.Set(float64(observedAtMillis) / 1000)
}

// RecordDuplicate increments the duplicate records counter.
func RecordDuplicate() {
	DefaultMetrics.DuplicateRecords.Inc()
}

// RecordDecodeError records an account data decode error.
func RecordDecodeError(errorType string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(errorType).Inc()
}

// RecordReconnect increments the WebSocket reconnects counter.
func RecordReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// SetWatchedAccounts updates the watched accounts gauge.
func SetWatchedAccounts(n int) {
	DefaultMetrics.WatchedAccounts.Set(float64(n))
}

// RecordRPCCall records RPC call latency and an error if one occurred.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}
