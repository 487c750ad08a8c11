package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching and risk Prometheus metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_requests_total",
			Help:      "Total number of ranked match lists produced",
		},
		[]string{"variant"}, // "stored" / "lookup"
	)

	MatchTopReasonTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_top_reason_total",
			Help:      "Dominant signal of the top-ranked match before demo forcing",
		},
		[]string{"reason"},
	)

	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "On-demand annotation lookups issued by matching and risk",
		},
		[]string{"caller", "status"},
	)

	RiskVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_verdicts_total",
			Help:      "Risk verdicts by level and deciding rule",
		},
		[]string{"level", "rule"},
	)
)

var matchingMetricsRegistered bool

// RegisterMatchingMetrics registers matching and risk metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchingMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchTopReasonTotal)
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(RiskVerdictsTotal)
	matchingMetricsRegistered = true
}
