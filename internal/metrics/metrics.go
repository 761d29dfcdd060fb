package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rcjcal_refresh_total", Help: "Cache refresh attempts by result"},
		[]string{"result"},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rcjcal_refresh_duration_seconds",
			Help:    "Time spent fetching a full snapshot",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
	LastRefreshSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "rcjcal_last_refresh_success_timestamp_seconds", Help: "Unix time of the last successful refresh"},
	)
	CachedEvents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "rcjcal_cached_events", Help: "Events in the live snapshot per territory"},
		[]string{"territory"},
	)
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rcjcal_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"route", "status"},
	)
)

func Register() {
	prometheus.MustRegister(RefreshTotal, RefreshDuration, LastRefreshSuccess, CachedEvents, RequestsTotal)
}
