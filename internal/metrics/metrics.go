package metrics

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const divisor = 100

// Metrics defines all Prometheus metrics for the newsletter service.
type Metrics struct {
	registry *prometheus.Registry

	// RED (Rate, Errors, Duration) for HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDuration  *prometheus.HistogramVec

	// Business metrics
	SubscribersCreated      *prometheus.CounterVec // by frequency
	SubscriptionsConfirmed  prometheus.Counter
	SubscriptionsCanceled   prometheus.Counter
	PreferenceUpdates       prometheus.Counter
	NewslettersSent         *prometheus.CounterVec // by audience
	EmailsSent              *prometheus.CounterVec // by kind, result
	TokensIssued            prometheus.Counter
	TokensConsumed          *prometheus.CounterVec // by result

	// Cron job metrics
	CronRuns        *prometheus.CounterVec // by job
	CronRunDuration *prometheus.HistogramVec

	// System metrics
	ServiceUptime prometheus.Gauge

	// Error metrics
	BusinessErrors  *prometheus.CounterVec
	TechnicalErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics under the given namespace.
func NewMetrics(namespace string, db *sql.DB, dbName string) *Metrics {
	registry := prometheus.NewRegistry()
	errorLabels := []string{"error_type", "severity"}
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests total",
			},
			[]string{"method", "endpoint", "status_class"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "In-flight HTTP requests",
			},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		SubscribersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscribers_created_total",
				Help:      "Total subscribers created",
			},
			[]string{"frequency"},
		),
		SubscriptionsConfirmed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_confirmed_total",
				Help:      "Total subscriptions confirmed",
			},
		),
		SubscriptionsCanceled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_canceled_total",
				Help:      "Total unsubscribes",
			},
		),
		PreferenceUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preference_updates_total",
				Help:      "Total preference updates",
			},
		),
		NewslettersSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "newsletters_sent_total",
				Help:      "Newsletters broadcast",
			},
			[]string{"audience"},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_sent_total",
				Help:      "Outbound emails by kind and result",
			},
			[]string{"kind", "result"},
		),
		TokensIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_tokens_issued_total",
				Help:      "Verification tokens issued",
			},
		),
		TokensConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_tokens_consumed_total",
				Help:      "Verification token consumption attempts",
			},
			[]string{"result"},
		),

		CronRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cron_runs_total",
				Help:      "Cron job executions",
			},
			[]string{"job"},
		),
		CronRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cron_run_duration_seconds",
				Help:      "Duration of cron jobs",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_uptime_seconds",
				Help:      "Service uptime in seconds",
			},
		),

		BusinessErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "business_errors_total",
				Help:      "Total business errors",
			},
			errorLabels,
		),
		TechnicalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "technical_errors_total",
				Help:      "Total technical errors",
			},
			errorLabels,
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.HTTPRequestDuration,
		m.SubscribersCreated,
		m.SubscriptionsConfirmed,
		m.SubscriptionsCanceled,
		m.PreferenceUpdates,
		m.NewslettersSent,
		m.EmailsSent,
		m.TokensIssued,
		m.TokensConsumed,
		m.CronRuns,
		m.CronRunDuration,
		m.ServiceUptime,
		m.BusinessErrors,
		m.TechnicalErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, dbName),
	)

	m.ServiceUptime.SetToCurrentTime()

	return m
}

// Handler exposes the service registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments Gin HTTP handlers for RED metrics.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		dur := time.Since(start).Seconds()
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/divisor)

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), statusClass).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(dur)
	}
}

// CronJob wraps a function with cron metrics (runs + duration).
func (m *Metrics) CronJob(job string, fn func()) {
	start := time.Now()
	m.CronRuns.WithLabelValues(job).Inc()
	fn()
	m.CronRunDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

// RecordEmail logs a send attempt result ("ok" or "error") per email kind.
func (m *Metrics) RecordEmail(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EmailsSent.WithLabelValues(kind, result).Inc()
}
