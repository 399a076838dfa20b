package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResourcesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discoverhealth_resources_created_total",
			Help: "Number of healthcare resources created",
		},
	)

	Recommendations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discoverhealth_recommendations_total",
			Help: "Number of recommendations recorded",
		},
	)

	ReviewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discoverhealth_reviews_created_total",
			Help: "Number of reviews created",
		},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discoverhealth_auth_events_total",
			Help: "Signup, login and logout attempts by outcome",
		},
		[]string{"event", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "discoverhealth_memory_sessions",
			Help: "Sessions held by the in-memory session store",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discoverhealth_cache_hits_total",
			Help: "Region list cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discoverhealth_cache_misses_total",
			Help: "Region list cache misses",
		},
	)
)

func RecordAuthEvent(event, outcome string) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}
