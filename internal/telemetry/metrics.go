// Package telemetry provides application-level observability for the Licope backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<LICOPE_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Job publish and public page view counters
//   - Licolog moderation action counters
//   - Application submission and notification email counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /p/:org_id/jobs/:pub_id)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as organization or publication IDs.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/TakashiSato01/licope-lab/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.JobViewsTotal.Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/licolog/approve),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
//
// Example PromQL queries:
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
//   - Average latency:                   rate(http_request_duration_seconds_sum[5m]) / rate(http_request_duration_seconds_count[5m])
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Domain metrics — recorded by the publish, moderation, and application handlers.
//
// JobPublishesTotal is a plain Counter incremented once per successful publish or
// republish of a job posting.
//
// JobViewsTotal is a plain Counter incremented for every recorded public job page
// view.  Per-organization breakdown lives in the database (job_view_daily), not in
// Prometheus, to keep label cardinality bounded.
//
// Example PromQL queries:
//   - Publish rate:      rate(job_publishes_total[1h])
//   - View rate:         rate(job_views_total[5m])
var (
	JobPublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_publishes_total",
			Help: "Total number of job posting publish and republish operations.",
		},
	)

	JobViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_views_total",
			Help: "Total number of recorded public job page views.",
		},
	)
)

// ModerationActionsTotal is a CounterVec with label {action} ("approve" or
// "unapprove") incremented once per post transitioned, not per batch call, so a
// 10-post batch approval adds 10.
//
// Example PromQL queries:
//   - Approvals per hour:  sum(rate(licolog_moderation_actions_total{action="approve"}[1h]))
var ModerationActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "licolog_moderation_actions_total",
		Help: "Total number of Licolog moderation transitions, by action.",
	},
	[]string{"action"},
)

// ApplicationsSubmittedTotal is a plain Counter incremented once per accepted
// public application.
//
// ApplicationNotificationsTotal is a CounterVec with label {outcome}
// ("delivered" or "skipped") recorded by the application notifier background job.
// A growing "skipped" count on a host where SMTP is expected to be configured is
// a useful alert signal.
//
// Example PromQL queries:
//   - Submission rate:        rate(applications_submitted_total[1h])
//   - Skipped notifications:  rate(application_notifications_total{outcome="skipped"}[1h])
var (
	ApplicationsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Total number of accepted public job applications.",
		},
	)

	ApplicationNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_notifications_total",
			Help: "Total number of application notification attempts, by outcome.",
		},
		[]string{"outcome"},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <LICOPE_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
