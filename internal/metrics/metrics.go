// Package metrics exposes Prometheus collectors for the service.
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
	scrapeRequestsTotal        *prometheus.CounterVec
	scrapeRecordsTotal         *prometheus.CounterVec
	fallbackReadsTotal         *prometheus.CounterVec
	cacheEventsTotal           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than
// once.
func Init() {
	once.Do(func() {
		scrapeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_scrape_requests_total",
				Help: "Total scraping pipeline requests, labeled by category and result source.",
			},
			[]string{"category", "source"},
		)
		scrapeRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_scrape_records_total",
				Help: "Total records returned by the pipeline, labeled by category.",
			},
			[]string{"category"},
		)
		fallbackReadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_fallback_reads_total",
				Help: "Total CSV fallback reads, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)
		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitibrasil_cache_events_total",
				Help: "Cache events, labeled by kind (hit, miss, error).",
			},
			[]string{"kind"},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveScrape records the outcome of one pipeline request.
func ObserveScrape(category, source string, records int) {
	if scrapeRequestsTotal == nil {
		return
	}
	scrapeRequestsTotal.WithLabelValues(category, source).Inc()
	scrapeRecordsTotal.WithLabelValues(category).Add(float64(records))
}

// ObserveFallback records one fallback store read.
func ObserveFallback(category, outcome string) {
	if fallbackReadsTotal == nil {
		return
	}
	fallbackReadsTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveCacheEvent records a cache hit, miss or internal error.
func ObserveCacheEvent(kind string) {
	if cacheEventsTotal == nil {
		return
	}
	cacheEventsTotal.WithLabelValues(kind).Inc()
}

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
