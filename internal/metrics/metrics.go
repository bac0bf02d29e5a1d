// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redemption and dispatch results.
const (
	ResultSuccess      = "success"
	ResultInvalid      = "invalid"
	ResultNotFound     = "not_found"
	ResultConnectivity = "connectivity"
	ResultConflict     = "conflict"
	ResultError        = "error"
	ResultRateLimited  = "rate_limited"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivshop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ivshop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// Fulfillment metrics
	VoucherRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivshop_voucher_redemptions_total",
			Help: "Voucher redemption attempts by outcome",
		},
		[]string{"result"},
	)

	RCONDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivshop_rcon_dispatch_total",
			Help: "Command batches sent to game server consoles by outcome",
		},
		[]string{"result"},
	)

	RCONDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ivshop_rcon_dispatch_duration_seconds",
			Help:    "Time spent delivering one command batch",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Status API metrics
	StatusRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivshop_status_refresh_total",
			Help: "Per-server background status refreshes by outcome",
		},
		[]string{"result"},
	)

	StatusCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ivshop_status_cache_hits_total",
			Help: "Status lookups answered from cache",
		},
	)

	StatusCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ivshop_status_cache_misses_total",
			Help: "Status lookups that reached the status API",
		},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordRedemption counts one redemption attempt.
func RecordRedemption(result string) {
	VoucherRedemptionsTotal.WithLabelValues(result).Inc()
}

// RecordDispatch counts one command batch and its latency.
func RecordDispatch(result string, d time.Duration) {
	RCONDispatchTotal.WithLabelValues(result).Inc()
	RCONDispatchDuration.Observe(d.Seconds())
}

// RecordStatusRefresh counts one per-server refresh.
func RecordStatusRefresh(result string) {
	StatusRefreshTotal.WithLabelValues(result).Inc()
}
