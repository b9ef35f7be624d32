package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqrlplanner/timetable-sync/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for sync runs.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	coursesSynced     prometheus.Gauge
	courseFailures    prometheus.Gauge
	duplicatesSkipped prometheus.Gauge
	orgFailures       prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetricsService registers the sync collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_sync_runs_total",
		Help: "Total number of sync runs by outcome",
	}, []string{"status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_sync_run_duration_seconds",
		Help:    "Duration of completed sync runs in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	coursesSynced := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_sync_courses_synced",
		Help: "Courses written by the most recent sync run",
	})

	courseFailures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_sync_course_failures",
		Help: "Course payloads that failed in the most recent sync run",
	})

	duplicatesSkipped := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_sync_duplicates_skipped",
		Help: "Cross-organisation duplicate course codes skipped in the most recent run",
	})

	orgFailures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_sync_organisation_failures",
		Help: "Organisations whose crawl failed in the most recent run",
	})

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_sync_http_requests_total",
		Help: "HTTP requests served by the worker's control surface",
	}, []string{"method", "path", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_sync_http_request_duration_seconds",
		Help:    "HTTP request latency on the worker's control surface",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		runsTotal,
		runDuration,
		coursesSynced,
		courseFailures,
		duplicatesSkipped,
		orgFailures,
		httpRequests,
		httpDuration,
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		coursesSynced:     coursesSynced,
		courseFailures:    courseFailures,
		duplicatesSkipped: duplicatesSkipped,
		orgFailures:       orgFailures,
		httpRequests:      httpRequests,
		httpDuration:      httpDuration,
	}
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	s.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// RecordSyncRun updates the run collectors. A nil report with an error
// means the run failed before producing one.
func (s *MetricsService) RecordSyncRun(report *models.SyncReport, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.runsTotal.WithLabelValues("failure").Inc()
		return
	}
	s.runsTotal.WithLabelValues("success").Inc()
	if report == nil {
		return
	}
	s.runDuration.Observe(report.Elapsed().Seconds())
	s.coursesSynced.Set(float64(report.CoursesSynced))
	s.courseFailures.Set(float64(len(report.CourseFailures)))
	s.duplicatesSkipped.Set(float64(report.DuplicatesSkipped))
	s.orgFailures.Set(float64(report.FailedOrganisations()))
}
