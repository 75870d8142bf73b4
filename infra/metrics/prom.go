package metrics

import (
	coremetrics "github.com/evroam/roaminghub/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records dispatcher outcomes in Prometheus metrics.
type PromSink struct {
	operations *prometheus.CounterVec
	runtime    *prometheus.HistogramVec
	settlement *prometheus.CounterVec
}

// NewPromSink registers the sink's metrics on the default Prometheus
// registerer. The Prometheus server is started separately via StartPromServer.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roaming_sink_operations_total",
		Help: "Dispatcher operations recorded by the metrics sink",
	}, []string{"operation", "kind", "collaborator"})
	runtime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roaming_sink_operation_runtime_seconds",
		Help:    "End-to-end runtime of dispatcher operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	settlement := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roaming_sink_settlement_records_total",
		Help: "CDR batch reconciliation counts by disposition",
	}, []string{"disposition"})

	for _, c := range []prometheus.Collector{operations, runtime, settlement} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{operations: operations, runtime: runtime, settlement: settlement}, nil
}

// RecordOperation counts each aggregate operation outcome.
func (s *PromSink) RecordOperation(recs []coremetrics.OperationRecord) error {
	for _, r := range recs {
		s.operations.WithLabelValues(r.Operation, r.Kind.String(), r.Collaborator).Inc()
		s.runtime.WithLabelValues(r.Operation).Observe(r.Runtime.Seconds())
	}
	return nil
}

// RecordSettlement counts batch reconciliation dispositions.
func (s *PromSink) RecordSettlement(rec coremetrics.SettlementRecord) error {
	s.settlement.WithLabelValues("resolved").Add(float64(rec.Resolved))
	s.settlement.WithLabelValues("filtered").Add(float64(rec.Filtered))
	s.settlement.WithLabelValues("unresolved").Add(float64(rec.Unresolved))
	return nil
}
