package invocation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports invocation counters to a Prometheus registry. It is
// optional; a manager without metrics skips all observation calls.
type Metrics struct {
	calls     *prometheus.CounterVec
	tokens    *prometheus.CounterVec
	cost      prometheus.Counter
	cacheHits prometheus.Counter
}

// NewMetrics registers the invocation metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmflow",
			Subsystem: "invocation",
			Name:      "calls_total",
			Help:      "Provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmflow",
			Subsystem: "invocation",
			Name:      "tokens_total",
			Help:      "Tokens consumed by provider and direction.",
		}, []string{"provider", "direction"}),
		cost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "llmflow",
			Subsystem: "invocation",
			Name:      "cost_usd_total",
			Help:      "Estimated spend in USD.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "llmflow",
			Subsystem: "invocation",
			Name:      "cache_hits_total",
			Help:      "Generate calls served from the response cache.",
		}),
	}
}

func (m *Metrics) observeCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) observeUsage(provider string, promptTokens, completionTokens int, cost float64) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	m.tokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	m.cost.Add(cost)
}

func (m *Metrics) observeCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
