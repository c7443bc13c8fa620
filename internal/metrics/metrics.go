package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CrawlRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiencesync_crawl_runs_total",
		Help: "Total comment crawl runs",
	})
	CrawlPages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiencesync_crawl_pages_total",
		Help: "Total profile feed pages fetched",
	})
	CrawlStops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiencesync_crawl_stops_total",
		Help: "Crawl terminations by stop reason",
	}, []string{"reason"})
	CrawlDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audiencesync_crawl_duration_seconds",
		Help:    "Crawl run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiencesync_api_retries_total",
		Help: "Total upstream API retry attempts",
	}, []string{"endpoint"})
	APIFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiencesync_api_failures_total",
		Help: "Upstream API calls that exhausted their retries",
	}, []string{"endpoint"})
	ProfileRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiencesync_profile_refreshes_total",
		Help: "Bylines refreshed from the public profile endpoint",
	})
	ProfileRefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiencesync_profile_refresh_errors_total",
		Help: "Per-profile refresh failures (skipped, not fatal)",
	})
	AssociationUpserts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiencesync_association_upserts_total",
		Help: "Ranked publication associations upserted",
	})
	AssociationUpsertErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiencesync_association_upsert_errors_total",
		Help: "Per-row association upsert failures (skipped, not fatal)",
	})
)

func init() {
	prometheus.MustRegister(
		CrawlRuns, CrawlPages, CrawlStops, CrawlDuration,
		APIRetries, APIFailures,
		ProfileRefreshes, ProfileRefreshErrors,
		AssociationUpserts, AssociationUpsertErrors,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveCrawlDuration records a crawl run duration.
func ObserveCrawlDuration(start time.Time) {
	CrawlDuration.Observe(time.Since(start).Seconds())
}
