package metrics

import coremetrics "github.com/evroam/roaminghub/core/metrics"

// MultiSink fans dispatcher outcomes out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOperation forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOperation(recs []coremetrics.OperationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordOperation(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordDelegation forwards delegation records to capable sinks.
func (m *MultiSink) RecordDelegation(recs []coremetrics.DelegationRecord) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.DelegationRecorder); ok {
			if err := rec.RecordDelegation(recs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSettlement forwards settlement records to capable sinks.
func (m *MultiSink) RecordSettlement(rec coremetrics.SettlementRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.SettlementRecorder); ok {
			if err := r.RecordSettlement(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
