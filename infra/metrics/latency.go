package metrics

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	coremetrics "github.com/evroam/roaminghub/core/metrics"
)

// LatencySummary describes the recent delegated-call latency of one
// collaborator.
type LatencySummary struct {
	Collaborator string  `json:"collaborator"`
	Samples      int     `json:"samples"`
	MeanMs       float64 `json:"mean_ms"`
	StdDevMs     float64 `json:"stddev_ms"`
	P95Ms        float64 `json:"p95_ms"`
}

const defaultWindow = 512

// LatencyTracker keeps a bounded window of delegated-call latencies per
// collaborator and summarizes them on demand. It implements
// coremetrics.DelegationRecorder so it can be combined with other sinks via
// MultiSink.
type LatencyTracker struct {
	mu      sync.Mutex
	window  int
	samples map[string][]float64
}

// NewLatencyTracker creates a tracker keeping up to window samples per
// collaborator; a non-positive window selects the default.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = defaultWindow
	}
	return &LatencyTracker{window: window, samples: make(map[string][]float64)}
}

// RecordOperation is a no-op; the tracker only consumes delegation records.
func (t *LatencyTracker) RecordOperation([]coremetrics.OperationRecord) error { return nil }

// RecordDelegation appends each latency to its collaborator's window.
func (t *LatencyTracker) RecordDelegation(recs []coremetrics.DelegationRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range recs {
		ms := float64(r.Latency) / float64(time.Millisecond)
		w := append(t.samples[r.Collaborator], ms)
		if len(w) > t.window {
			w = w[len(w)-t.window:]
		}
		t.samples[r.Collaborator] = w
	}
	return nil
}

// Summaries returns per-collaborator statistics sorted by collaborator id.
func (t *LatencyTracker) Summaries() []LatencySummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LatencySummary, 0, len(t.samples))
	for id, w := range t.samples {
		sorted := append([]float64(nil), w...)
		sort.Float64s(sorted)
		mean, std := stat.MeanStdDev(sorted, nil)
		if len(sorted) < 2 {
			std = 0
		}
		out = append(out, LatencySummary{
			Collaborator: id,
			Samples:      len(sorted),
			MeanMs:       mean,
			StdDevMs:     std,
			P95Ms:        stat.Quantile(0.95, stat.Empirical, sorted, nil),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collaborator < out[j].Collaborator })
	return out
}
