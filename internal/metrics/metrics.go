// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal          *prometheus.CounterVec
	scraperCandidatesTotal     *prometheus.CounterVec
	scraperPostingsTotal       *prometheus.CounterVec
	scraperTargetFailuresTotal *prometheus.CounterVec
	scraperAlertsTotal         prometheus.Counter
	scraperRunDurationSeconds  prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Career pages fetched, labeled by target and outcome.",
			},
			[]string{"target", "outcome"},
		)

		scraperCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_candidates_total",
				Help: "Candidate postings extracted, labeled by target.",
			},
			[]string{"target"},
		)

		scraperPostingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_postings_total",
				Help: "New postings persisted, labeled by target.",
			},
			[]string{"target"},
		)

		scraperTargetFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_target_failures_total",
				Help: "Targets that failed a scrape cycle, labeled by target.",
			},
			[]string{"target"},
		)

		scraperAlertsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_alerts_total",
				Help: "Alert messages delivered to the notification channel.",
			},
		)

		scraperRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_run_duration_seconds",
				Help:    "Histogram of full scrape run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch attempt for a target.
func ObserveFetch(target, outcome string) {
	scraperPagesTotal.WithLabelValues(target, outcome).Inc()
}

// ObserveCandidates adds the number of candidates extracted from a page.
func ObserveCandidates(target string, count int) {
	scraperCandidatesTotal.WithLabelValues(target).Add(float64(count))
}

// ObservePostingAdded increments the new-posting counter for a target.
func ObservePostingAdded(target string) {
	scraperPostingsTotal.WithLabelValues(target).Inc()
}

// ObserveTargetFailure increments the failure counter for a target.
func ObserveTargetFailure(target string) {
	scraperTargetFailuresTotal.WithLabelValues(target).Inc()
}

// ObserveAlertsSent adds delivered alerts to the running total.
func ObserveAlertsSent(count int) {
	scraperAlertsTotal.Add(float64(count))
}

// ObserveRunDuration records how long a full scrape run took.
func ObserveRunDuration(d time.Duration) {
	scraperRunDurationSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
