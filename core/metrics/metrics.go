// Package metrics defines the sink contract the dispatcher records outcomes
// into. Concrete sinks (Prometheus, InfluxDB, fan-out) live under
// infra/metrics; optional capabilities are discovered by type assertion.
package metrics

import (
	"time"

	"github.com/evroam/roaminghub/core/result"
)

// OperationRecord captures the aggregate outcome of one dispatcher operation.
type OperationRecord struct {
	Operation    string
	Kind         result.Kind
	Collaborator string
	Runtime      time.Duration
	Time         time.Time
}

// Sink records dispatcher outcomes for observability purposes.
type Sink interface {
	RecordOperation(recs []OperationRecord) error
}

// DelegationRecord captures one delegated call to a collaborator, including
// its position in the fallback chain.
type DelegationRecord struct {
	Operation     string
	Collaborator  string
	Kind          result.Kind
	FallbackDepth int
	Latency       time.Duration
	Time          time.Time
}

// DelegationRecorder is implemented by sinks able to record per-delegation
// latency.
type DelegationRecorder interface {
	RecordDelegation(recs []DelegationRecord) error
}

// SettlementRecord captures the reconciliation of one CDR batch.
type SettlementRecord struct {
	BatchSize  int
	Resolved   int
	Filtered   int
	Unresolved int
	Time       time.Time
}

// SettlementRecorder is implemented by sinks able to record CDR batch
// reconciliation.
type SettlementRecorder interface {
	RecordSettlement(rec SettlementRecord) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordOperation([]OperationRecord) error   { return nil }
func (NopSink) RecordDelegation([]DelegationRecord) error { return nil }
func (NopSink) RecordSettlement(SettlementRecord) error   { return nil }

// Config defines metrics-related settings.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
