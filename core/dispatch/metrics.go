package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal   *prometheus.CounterVec
	delegationLatency *prometheus.HistogramVec
	fallbackDepth     *prometheus.HistogramVec
	cdrRecordsTotal   *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.HistogramVec, *prometheus.CounterVec) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roaming_operations_total",
			Help: "Dispatcher operations by aggregate outcome kind",
		},
		[]string{"operation", "kind"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roaming_delegation_latency_seconds",
			Help:    "Latency of delegated calls to collaborators",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	depth := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roaming_fallback_depth",
			Help:    "Number of collaborators consulted before an operation settled",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		},
		[]string{"operation"},
	)
	cdrs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roaming_cdr_records_total",
			Help: "Per-record charge detail record outcomes",
		},
		[]string{"kind"},
	)
	return ops, lat, depth, cdrs
}

func init() {
	operationsTotal, delegationLatency, fallbackDepth, cdrRecordsTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(operationsTotal, delegationLatency, fallbackDepth, cdrRecordsTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	operationsTotal, delegationLatency, fallbackDepth, cdrRecordsTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
