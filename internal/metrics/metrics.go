package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var msBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2500, 5000, 10000}

var (
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "infrabeacon_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: msBuckets,
	}, []string{"method", "code"})
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_submissions_total",
		Help: "Report submissions by outcome (created, duplicate, invalid, failed)",
	}, []string{"outcome"})
	UploadFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "infrabeacon_upload_fail_total",
		Help: "Total image store failures",
	})
	ClassifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_classify_total",
		Help: "Vision classification calls by result (ok, fail)",
	}, []string{"result"})
	ClassifyDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "infrabeacon_classify_duration_ms",
		Help:    "Vision classification duration in milliseconds",
		Buckets: msBuckets,
	})
	NearbyCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "infrabeacon_nearby_candidates",
		Help:    "Reports fetched by the geohash pre-filter per nearby query",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500},
	})
	AdminActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_admin_actions_total",
		Help: "Admin workflow operations by action and result",
	}, []string{"action", "result"})
	LoginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_login_total",
		Help: "Admin login attempts by result",
	}, []string{"result"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_cache_hits_total",
		Help: "Redis cache hits by key family",
	}, []string{"family"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_cache_misses_total",
		Help: "Redis cache misses by key family",
	}, []string{"family"})
	HeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_heartbeat_total",
		Help: "Dependency heartbeat count by component and status",
	}, []string{"component", "status"})
	NotifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "infrabeacon_notify_total",
		Help: "Outbound notifications by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(UploadFailTotal)
	prometheus.MustRegister(ClassifyTotal)
	prometheus.MustRegister(ClassifyDurationMs)
	prometheus.MustRegister(NearbyCandidates)
	prometheus.MustRegister(AdminActionsTotal)
	prometheus.MustRegister(LoginTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(HeartbeatTotal)
	prometheus.MustRegister(NotifyTotal)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
