package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenarentals_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenarentals_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenarentals_transitions_total",
		Help: "Lifecycle transition attempts by entity, action and result",
	}, []string{"entity", "action", "result"})

	casConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenarentals_cas_conflicts_total",
		Help: "Compare-and-set writes lost to a concurrent update",
	}, []string{"entity"})

	reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenarentals_reconcile_runs_total",
		Help: "Agreement reconciliation sweeps by result",
	}, []string{"result"})

	reconcileTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenarentals_reconcile_transitions_total",
		Help: "Agreements moved by reconciliation, by target status",
	}, []string{"to"})

	listingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenarentals_listing_cache_total",
		Help: "Public listing cache lookups by result",
	}, []string{"result"})

	notificationSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tenarentals_notification_subscribers",
		Help: "Open websocket notification subscriptions",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTransition counts a lifecycle transition attempt. result is a short error kind or "ok".
func ObserveTransition(entity, action, result string) {
	transitionsTotal.WithLabelValues(entity, action, result).Inc()
}

// ObserveConflicts adds lost compare-and-set races for an entity
func ObserveConflicts(entity string, n int) {
	if n > 0 {
		casConflicts.WithLabelValues(entity).Add(float64(n))
	}
}

// ObserveReconcile records one reconciliation sweep
func ObserveReconcile(result string) {
	reconcileRuns.WithLabelValues(result).Inc()
}

// ObserveReconciled counts agreements that reached status to during a sweep
func ObserveReconciled(to string, n int) {
	if n > 0 {
		reconcileTransitions.WithLabelValues(to).Add(float64(n))
	}
}

// ObserveListingCache records a hit, miss or error on the listing cache
func ObserveListingCache(result string) {
	listingCache.WithLabelValues(result).Inc()
}

// SubscriberJoined and SubscriberLeft track open notification streams.
func SubscriberJoined() { notificationSubscribers.Inc() }

func SubscriberLeft() { notificationSubscribers.Dec() }
