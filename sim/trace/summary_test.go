package trace

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestSummarize_Empty_ZeroValues(t *testing.T) {
	// GIVEN no replicas
	summary := Summarize(nil)

	// THEN all fields are zero
	if summary.Replicas != 0 || summary.MeanSteps != 0 || summary.StdTime != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
	if len(summary.Reasons) != 0 {
		t.Error("expected no termination reasons")
	}
}

func TestSummarize_SingleReplica_NoSpread(t *testing.T) {
	summary := Summarize([]ReplicaRecord{{Seed: 1, Steps: 40, Time: 2.5, Reason: "quiescent"}})
	if summary.MeanSteps != 40 || summary.MeanTime != 2.5 {
		t.Errorf("expected mean of the only replica, got %+v", summary)
	}
	if summary.StdSteps != 0 || summary.StdTime != 0 {
		t.Errorf("expected zero spread, got %v and %v", summary.StdSteps, summary.StdTime)
	}
}

func TestSummarize_Statistics(t *testing.T) {
	// GIVEN replicas with known outcomes
	records := []ReplicaRecord{
		{Seed: 1, Steps: 10, Time: 1.0, Reason: "step_cutoff", Clamped: 1, Sites: 100},
		{Seed: 2, Steps: 20, Time: 2.0, Reason: "step_cutoff", Sites: 120, Resumed: true},
		{Seed: 3, Steps: 30, Time: 3.0, Reason: "quiescent", Clamped: 2, Sites: 110},
	}

	// WHEN summarized
	s := Summarize(records)

	// THEN means, sample deviations and counts match
	if s.Replicas != 3 || s.Resumed != 1 || s.Clamped != 3 || s.MaxSites != 120 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.MeanSteps != 20 || math.Abs(s.StdSteps-10) > 1e-12 {
		t.Errorf("steps: expected 20 ± 10, got %v ± %v", s.MeanSteps, s.StdSteps)
	}
	if math.Abs(s.MeanTime-2) > 1e-12 || math.Abs(s.StdTime-1) > 1e-12 {
		t.Errorf("time: expected 2 ± 1, got %v ± %v", s.MeanTime, s.StdTime)
	}
	if s.Reasons["step_cutoff"] != 2 || s.Reasons["quiescent"] != 1 {
		t.Errorf("unexpected reasons: %v", s.Reasons)
	}
}

func TestRunSummary_Print(t *testing.T) {
	var buf bytes.Buffer
	Summarize([]ReplicaRecord{{Steps: 5, Time: 1, Reason: "time_cutoff"}}).Print(&buf)
	out := buf.String()
	for _, want := range []string{"Run Summary", "Replicas      : 1", "time_cutoff"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
