package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the pipeline updates at each
// decision point.
type Metrics struct {
	DecodeOutcomes   *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	SimLatency       prometheus.Histogram
	BundlesSubmitted prometheus.Counter
	BundlesLanded    prometheus.Counter
}

// NewMetrics constructs and registers the pipeline's Prometheus
// collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecodeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solmev",
			Name:      "decode_outcomes_total",
			Help:      "Account decode outcomes by classification result and venue.",
		}, []string{"outcome", "venue"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solmev",
			Name:      "opportunity_rejections_total",
			Help:      "Opportunity scan rejections by taxonomy reason.",
		}, []string{"reason"}),
		SimLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solmev",
			Name:      "sim_latency_seconds",
			Help:      "Per-leg swap simulation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
		}),
		BundlesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solmev",
			Name:      "bundles_submitted_total",
			Help:      "Bundles submitted to a relay.",
		}),
		BundlesLanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solmev",
			Name:      "bundles_landed_total",
			Help:      "Bundles confirmed landed on-chain.",
		}),
	}
	reg.MustRegister(m.DecodeOutcomes, m.Rejections, m.SimLatency, m.BundlesSubmitted, m.BundlesLanded)
	return m
}
