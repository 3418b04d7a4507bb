package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	SnapshotsBuilt   *prometheus.CounterVec
	WatchlistAdds    prometheus.Counter
	WatchlistRemoves prometheus.Counter
	AuditEntries     *prometheus.CounterVec
	OutboxPublished  prometheus.Counter
	ExternalFetch    *prometheus.HistogramVec
	ExternalFailures *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ppuk_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		SnapshotsBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ppuk_snapshots_built_total",
			Help: "Snapshots assembled, by resolved relationship tier.",
		}, []string{"relationship"}),
		WatchlistAdds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ppuk_watchlist_adds_total",
			Help: "Watchlist adds that created a relationship.",
		}),
		WatchlistRemoves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ppuk_watchlist_removes_total",
			Help: "Watchlist removals that deleted a relationship.",
		}),
		AuditEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ppuk_audit_entries_total",
			Help: "Audit entries recorded, by action.",
		}, []string{"action"}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ppuk_audit_outbox_published_total",
			Help: "Audit outbox entries published to Kafka.",
		}),
		ExternalFetch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ppuk_external_fetch_duration_seconds",
			Help:    "External data source fetch latency, by source.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		ExternalFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ppuk_external_fetch_failures_total",
			Help: "External data source failures (including timeouts), by source.",
		}, []string{"source"}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ppuk_external_cache_hits_total",
			Help: "External-data cache hits, by source.",
		}, []string{"source"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// ObserveExternalFetch records one external-source fetch observation.
func (m *Metrics) ObserveExternalFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExternalFetch.WithLabelValues(source).Observe(d.Seconds())
}

// IncrementExternalFailure counts a degraded external fetch.
func (m *Metrics) IncrementExternalFailure(source string) {
	if m == nil {
		return
	}
	m.ExternalFailures.WithLabelValues(source).Inc()
}

// IncrementCacheHit counts an external-data cache hit.
func (m *Metrics) IncrementCacheHit(source string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(source).Inc()
}

// IncrementSnapshot counts a snapshot build for the given tier.
func (m *Metrics) IncrementSnapshot(relationship string) {
	if m == nil {
		return
	}
	m.SnapshotsBuilt.WithLabelValues(relationship).Inc()
}

// IncrementWatchlistAdd counts a watchlist add that created a relationship.
func (m *Metrics) IncrementWatchlistAdd() {
	if m == nil {
		return
	}
	m.WatchlistAdds.Inc()
}

// IncrementWatchlistRemove counts a watchlist removal.
func (m *Metrics) IncrementWatchlistRemove() {
	if m == nil {
		return
	}
	m.WatchlistRemoves.Inc()
}

// IncrementOutboxPublished counts audit entries published from the outbox.
func (m *Metrics) IncrementOutboxPublished() {
	if m == nil {
		return
	}
	m.OutboxPublished.Inc()
}

// IncrementAudit counts a recorded audit entry.
func (m *Metrics) IncrementAudit(action string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(action).Inc()
}
