package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments scraped via /metrics.
type Metrics struct {
	tokensGenerated   prometheus.Counter
	generationRetries prometheus.Counter
	redemptions       *prometheus.CounterVec
	rateLimitDenied   *prometheus.CounterVec
	riskDecisions     *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the cashout instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		tokensGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashout_tokens_generated_total",
			Help: "Withdrawal tokens issued.",
		}),
		generationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cashout_generation_retries_total",
			Help: "Token generation retries caused by hash collisions.",
		}),
		redemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cashout_redemptions_total",
			Help: "Redemption attempts by outcome.",
		}, []string{"result"}),
		rateLimitDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cashout_rate_limit_denied_total",
			Help: "Redemption requests rejected by the sliding-window limiter.",
		}, []string{"gate"}),
		riskDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cashout_risk_decisions_total",
			Help: "Risk evaluator decisions on redemption requests.",
		}, []string{"decision"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cashout_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) RecordTokenGenerated() {
	if m == nil {
		return
	}
	m.tokensGenerated.Inc()
}

func (m *Metrics) RecordGenerationRetry() {
	if m == nil {
		return
	}
	m.generationRetries.Inc()
}

func (m *Metrics) RecordRedemption(result string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRateLimitDenied(gate string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(gate).Inc()
}

func (m *Metrics) RecordRiskDecision(decision string) {
	if m == nil {
		return
	}
	m.riskDecisions.WithLabelValues(decision).Inc()
}

// GinMiddleware records request latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
