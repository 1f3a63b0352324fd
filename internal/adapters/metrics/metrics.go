// Package metrics defines the Prometheus metrics of the marketplace service.
// All metrics register with the default registry on package init.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"subastas-marketplace/internal/ports/outbound"
)

const namespace = "subastas"

// BidsTotal counts bid placements by outcome (accepted, rejected, conflict)
var BidsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_total",
		Help:      "Total number of bid placements, by outcome.",
	},
	[]string{"outcome"},
)

// BidAttempts observes how many OCC tries a placement needed
var BidAttempts = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bid_occ_attempts",
		Help:      "Optimistic concurrency attempts per bid placement.",
		Buckets:   []float64{1, 2, 3, 4, 5, 8},
	},
	[]string{"outcome"},
)

// WSConnections tracks currently connected WebSocket clients
var WSConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Number of connected WebSocket clients.",
	},
)

// WSSlowConsumersTotal counts clients disconnected for not keeping up
var WSSlowConsumersTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_slow_consumers_total",
		Help:      "WebSocket clients closed with a policy violation because their send buffer stayed full.",
	},
)

// HTTPRequestsTotal counts REST requests by route, method and status
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures REST latency by route
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// BidRecorder implements outbound.BidMetrics on the package metrics
type BidRecorder struct{}

func (BidRecorder) ObserveBid(outcome string, attempts int) {
	BidsTotal.WithLabelValues(outcome).Inc()
	BidAttempts.WithLabelValues(outcome).Observe(float64(attempts))
}

// ObserveHTTP records one finished request
func ObserveHTTP(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

var _ outbound.BidMetrics = BidRecorder{}
