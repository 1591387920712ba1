package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheComputeErrors prometheus.Counter
	CacheStoreErrors   prometheus.Counter

	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter
	Subscribers     prometheus.Gauge

	FeedBursts prometheus.Counter

	DisasterMutations *prometheus.CounterVec
	ReportsCreated    prometheus.Counter

	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against an explicit registerer so tests can
// use a throwaway registry without duplicate-registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_cache_hits_total",
			Help: "Cache lookups answered from a fresh entry",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_cache_misses_total",
			Help: "Cache lookups that invoked the compute function",
		}),
		CacheComputeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_cache_compute_errors_total",
			Help: "Compute function failures (never cached)",
		}),
		CacheStoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_cache_store_errors_total",
			Help: "Cache backing store failures handled fail-open",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_events_published_total",
			Help: "Events handed to the broadcast hub, by topic",
		}, []string{"topic"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_subscribers",
			Help: "Currently connected broadcast subscribers",
		}),
		FeedBursts: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_feed_bursts_total",
			Help: "Simulated feed bursts scheduled by the throttler",
		}),
		DisasterMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_disaster_mutations_total",
			Help: "Disaster mutations by operation",
		}, []string{"op"}),
		ReportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "beacon_reports_created_total",
			Help: "Reports submitted",
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveHTTP records one HTTP request observation.
func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, status).Observe(d.Seconds())
}
