package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the generation service.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDurationMs  *prometheus.HistogramVec
	GuardBlockTotal    *prometheus.CounterVec
	RateLimitHitTotal  prometheus.Counter
	UpstreamRetryTotal prometheus.Counter
	UpstreamErrorTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on the given registerer. Tests pass a
// fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftly_request_total",
			Help: "Total generation requests processed, by response status.",
		}, []string{"status"}),

		RequestDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "draftly_request_duration_ms",
			Help:    "Generation request duration in milliseconds (including upstream latency).",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"status"}),

		GuardBlockTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftly_guard_block_total",
			Help: "Total inputs rejected by the input guard, by reason.",
		}, []string{"reason"}),

		RateLimitHitTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "draftly_rate_limit_hit_total",
			Help: "Total requests denied by the rate limiter.",
		}),

		UpstreamRetryTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "draftly_upstream_retry_total",
			Help: "Total retried upstream attempts.",
		}),

		UpstreamErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftly_upstream_error_total",
			Help: "Total failed upstream calls, by error kind.",
		}, []string{"kind"}),
	}
}

// RecordRequest records a completed generation request.
func (m *Metrics) RecordRequest(status string, durationMs float64) {
	m.RequestTotal.WithLabelValues(status).Inc()
	m.RequestDurationMs.WithLabelValues(status).Observe(durationMs)
}

// RecordGuardBlock records an input guard rejection.
func (m *Metrics) RecordGuardBlock(reason string) {
	m.GuardBlockTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimitHit records a denied admission.
func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitTotal.Inc()
}

// RecordUpstreamRetry records one retried upstream attempt.
func (m *Metrics) RecordUpstreamRetry() {
	m.UpstreamRetryTotal.Inc()
}

// RecordUpstreamError records a failed upstream call.
func (m *Metrics) RecordUpstreamError(kind string) {
	m.UpstreamErrorTotal.WithLabelValues(kind).Inc()
}
