package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crypto_backend"

// Result labels for RateRequestsTotal
const (
	ResultOK             = "ok"
	ResultNotConnected   = "not_connected"
	ResultUnknownAccount = "unknown_account"
	ResultPriceError     = "price_error"
)

// RateMetrics holds the metrics collected by the rate engine
type RateMetrics struct {
	// Rate requests by outcome
	RateRequestsTotal *prometheus.CounterVec

	// Time spent waiting for both price queries
	PriceQueryDuration prometheus.Histogram

	// Last computed rate per account pair
	LastRate *prometheus.GaugeVec
}

// NewRateMetrics creates the metrics and
// registers them with given registerer
func NewRateMetrics(reg prometheus.Registerer) *RateMetrics {
	m := &RateMetrics{
		RateRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_requests_total",
			Help:      "Number of rate requests by result",
		}, []string{"result"}),
		PriceQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_query_duration_seconds",
			Help:      "Duration of concurrent price lookups for a rate request",
			Buckets:   prometheus.DefBuckets,
		}),
		LastRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_last_value",
			Help:      "Last rate computed for an account pair",
		}, []string{"source", "destination"}),
	}

	if reg != nil {
		reg.MustRegister(m.RateRequestsTotal, m.PriceQueryDuration, m.LastRate)
	}

	return m
}

// Observe records the outcome of a single rate request.
// It is safe to call on a nil receiver.
func (m *RateMetrics) Observe(result string) {
	if m == nil {
		return
	}
	m.RateRequestsTotal.WithLabelValues(result).Inc()
}

// ObservePriceQuery records the duration of the price fan-out in seconds
func (m *RateMetrics) ObservePriceQuery(seconds float64) {
	if m == nil {
		return
	}
	m.PriceQueryDuration.Observe(seconds)
}

// SetRate records the last rate computed for the pair
func (m *RateMetrics) SetRate(source, destination string, rate float64) {
	if m == nil {
		return
	}
	m.LastRate.WithLabelValues(source, destination).Set(rate)
}
