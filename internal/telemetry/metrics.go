package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the request router.
type Metrics struct {
	RouteTotal         *prometheus.CounterVec
	SelectionTotal     *prometheus.CounterVec
	FailoverTotal      *prometheus.CounterVec
	BlacklistTotal     *prometheus.CounterVec
	QuotaRejectedTotal *prometheus.CounterVec
	ComplexityScore    *prometheus.HistogramVec
	DispatchDurationMs *prometheus.HistogramVec
	TokensTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RouteTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_route_total",
			Help: "Total routed requests by terminal outcome.",
		}, []string{"outcome", "task"}),

		SelectionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_selection_total",
			Help: "Total model selections.",
		}, []string{"task", "model"}),

		FailoverTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_failover_total",
			Help: "Total failovers to another model after a dispatch failure.",
		}, []string{"model", "reason"}),

		BlacklistTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_blacklist_total",
			Help: "Total temporary model bans recorded.",
		}, []string{"model", "reason"}),

		QuotaRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_quota_rejected_total",
			Help: "Total atomic reservations rejected at registration time.",
		}, []string{"model"}),

		ComplexityScore: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_complexity_score",
			Help:    "Complexity score distribution of classified requests.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}, []string{"category"}),

		DispatchDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_dispatch_duration_ms",
			Help:    "Provider dispatch duration in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider", "model"}),

		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_tokens_total",
			Help: "Total tokens reported by providers.",
		}, []string{"model", "direction"}),
	}
}

// RecordRoute records a terminal routing outcome.
func (m *Metrics) RecordRoute(outcome, task string) {
	m.RouteTotal.WithLabelValues(outcome, task).Inc()
}

// RecordSelection records a model selection for a task.
func (m *Metrics) RecordSelection(task, model string) {
	m.SelectionTotal.WithLabelValues(task, model).Inc()
}

// RecordFailover records a failover away from a model.
func (m *Metrics) RecordFailover(model, reason string) {
	m.FailoverTotal.WithLabelValues(model, reason).Inc()
}

// RecordBlacklist records a new temporary ban.
func (m *Metrics) RecordBlacklist(model, reason string) {
	m.BlacklistTotal.WithLabelValues(model, reason).Inc()
}

// RecordQuotaRejected records a reservation denied at registration time.
func (m *Metrics) RecordQuotaRejected(model string) {
	m.QuotaRejectedTotal.WithLabelValues(model).Inc()
}

// RecordClassification records a complexity score.
func (m *Metrics) RecordClassification(category string, score int) {
	m.ComplexityScore.WithLabelValues(category).Observe(float64(score))
}

// RecordDispatch records one provider call's duration and token usage.
func (m *Metrics) RecordDispatch(provider, model string, durationMs float64, promptTokens, completionTokens int) {
	m.DispatchDurationMs.WithLabelValues(provider, model).Observe(durationMs)
	if promptTokens > 0 {
		m.TokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.TokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}
