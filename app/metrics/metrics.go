package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "endpoint"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "endpoint"},
	)

	// Business metrics
	accountRegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Total number of account registrations",
		},
	)

	accountLoginsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_logins_total",
			Help: "Total number of successful logins",
		},
	)

	accountLoginsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_logins_failed_total",
			Help: "Total number of failed login attempts",
		},
	)

	accountTokenRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_token_refreshes_total",
			Help: "Total number of access token refreshes",
		},
	)

	accountConfirmationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_email_confirmations_total",
			Help: "Total number of successful email confirmations",
		},
	)

	accountCodeResendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_code_resends_total",
			Help: "Total number of confirmation code resend requests",
		},
	)

	accountSweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_sweep_deleted_total",
			Help: "Total number of unverified accounts removed by the sweeper",
		},
	)

	emailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_emails_sent_total",
			Help: "Total number of confirmation emails sent by the worker",
		},
	)

	emailsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "account_emails_failed_total",
			Help: "Total number of confirmation emails that exhausted retries",
		},
	)

	// Dependency health metrics
	dependencyHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dependency_health",
			Help: "Health status of dependencies (1 = healthy, 0 = unhealthy)",
		},
		[]string{"dependency"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	status := strconv.Itoa(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	httpRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordRegistration increments the registration counter
func RecordRegistration() {
	accountRegistrationsTotal.Inc()
}

// RecordLogin increments the login counter
func RecordLogin() {
	accountLoginsTotal.Inc()
}

// RecordLoginFailed increments the failed login counter
func RecordLoginFailed() {
	accountLoginsFailed.Inc()
}

// RecordTokenRefresh increments the token refresh counter
func RecordTokenRefresh() {
	accountTokenRefreshesTotal.Inc()
}

// RecordEmailConfirmation increments the confirmation counter
func RecordEmailConfirmation() {
	accountConfirmationsTotal.Inc()
}

// RecordCodeResend increments the resend counter
func RecordCodeResend() {
	accountCodeResendsTotal.Inc()
}

// RecordSweepDeleted adds to the sweeper deletion counter
func RecordSweepDeleted(n int) {
	accountSweepDeletedTotal.Add(float64(n))
}

// RecordEmailSent increments the sent email counter
func RecordEmailSent() {
	emailsSentTotal.Inc()
}

// RecordEmailFailed increments the failed email counter
func RecordEmailFailed() {
	emailsFailedTotal.Inc()
}

// SetDependencyHealth sets the health status of a dependency
func SetDependencyHealth(dependency string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	dependencyHealth.WithLabelValues(dependency).Set(value)
}

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
