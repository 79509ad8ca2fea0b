package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricPrefix = "openbatch_"

var signalRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "signal_requests_total",
		Help: "Signal requests handled, by signal name and outcome",
	},
	[]string{"signal", "outcome"},
)

var fanoutSize = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    MetricPrefix + "signal_fanout_size",
		Help:    "Number of subjobs dispatched per array or range request",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	},
)

var relayFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "relay_failures_total",
		Help: "Signals that could not be submitted to the execution agent",
	},
)

func RecordSignal(signal string, outcome string) {
	signalRequests.WithLabelValues(signal, outcome).Inc()
}

func RecordFanout(targets int) {
	fanoutSize.Observe(float64(targets))
}

func RecordRelayFailure() {
	relayFailures.Inc()
}
