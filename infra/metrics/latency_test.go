package metrics

import (
	"math"
	"testing"
	"time"

	coremetrics "github.com/evroam/roaminghub/core/metrics"
)

func record(t *testing.T, tr *LatencyTracker, collab string, ms ...float64) {
	t.Helper()
	recs := make([]coremetrics.DelegationRecord, 0, len(ms))
	for _, m := range ms {
		recs = append(recs, coremetrics.DelegationRecord{
			Collaborator: collab,
			Latency:      time.Duration(m * float64(time.Millisecond)),
		})
	}
	if err := tr.RecordDelegation(recs); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestLatencySummaryStatistics(t *testing.T) {
	tr := NewLatencyTracker(0)
	record(t, tr, "op-1", 10, 20, 30, 40)

	sums := tr.Summaries()
	if len(sums) != 1 {
		t.Fatalf("summaries = %+v", sums)
	}
	s := sums[0]
	if s.Samples != 4 {
		t.Errorf("samples = %d", s.Samples)
	}
	if math.Abs(s.MeanMs-25) > 1e-9 {
		t.Errorf("mean = %v, want 25", s.MeanMs)
	}
	if s.StdDevMs <= 0 {
		t.Errorf("stddev = %v", s.StdDevMs)
	}
	if s.P95Ms < s.MeanMs {
		t.Errorf("p95 %v below mean %v", s.P95Ms, s.MeanMs)
	}
}

func TestLatencyWindowIsBounded(t *testing.T) {
	tr := NewLatencyTracker(4)
	record(t, tr, "op-1", 100, 100, 100, 100, 1, 1, 1, 1)

	s := tr.Summaries()[0]
	if s.Samples != 4 {
		t.Fatalf("samples = %d, want the window size", s.Samples)
	}
	// Only the most recent window must survive.
	if math.Abs(s.MeanMs-1) > 1e-9 {
		t.Errorf("mean = %v, want 1 (old samples evicted)", s.MeanMs)
	}
}

func TestSummariesSortedByCollaborator(t *testing.T) {
	tr := NewLatencyTracker(0)
	record(t, tr, "zeta", 5)
	record(t, tr, "alpha", 5)
	record(t, tr, "mid", 5)

	sums := tr.Summaries()
	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if sums[i].Collaborator != id {
			t.Errorf("position %d: %s, want %s", i, sums[i].Collaborator, id)
		}
	}
}

func TestSingleSampleHasZeroStdDev(t *testing.T) {
	tr := NewLatencyTracker(0)
	record(t, tr, "op-1", 42)
	if s := tr.Summaries()[0]; s.StdDevMs != 0 {
		t.Errorf("stddev = %v, want 0 for one sample", s.StdDevMs)
	}
}
