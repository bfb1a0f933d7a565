package trace

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RunSummary aggregates the outcomes of all replicas of a run.
type RunSummary struct {
	Replicas  int
	Resumed   int
	MeanSteps float64
	StdSteps  float64
	MeanTime  float64
	StdTime   float64
	MaxSites  int
	Clamped   int
	Reasons   map[string]int // termination reason → replica count
}

// Summarize computes aggregate statistics over replica outcomes.
// Safe for nil or empty input (returns zero-value fields). Standard
// deviations need at least two replicas and are zero otherwise.
func Summarize(records []ReplicaRecord) *RunSummary {
	summary := &RunSummary{Reasons: make(map[string]int)}
	if len(records) == 0 {
		return summary
	}

	steps := make([]float64, len(records))
	times := make([]float64, len(records))
	for i, r := range records {
		steps[i] = float64(r.Steps)
		times[i] = r.Time
		summary.Reasons[r.Reason]++
		summary.Clamped += r.Clamped
		if r.Resumed {
			summary.Resumed++
		}
		if r.Sites > summary.MaxSites {
			summary.MaxSites = r.Sites
		}
	}
	summary.Replicas = len(records)
	if len(records) < 2 {
		summary.MeanSteps, summary.MeanTime = steps[0], times[0]
		return summary
	}
	summary.MeanSteps, summary.StdSteps = stat.MeanStdDev(steps, nil)
	summary.MeanTime, summary.StdTime = stat.MeanStdDev(times, nil)
	return summary
}

// Print writes a human-readable report.
func (s *RunSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "=== Run Summary ===\n")
	fmt.Fprintf(w, "Replicas      : %d (%d resumed)\n", s.Replicas, s.Resumed)
	fmt.Fprintf(w, "Steps         : %.1f ± %.1f\n", s.MeanSteps, s.StdSteps)
	fmt.Fprintf(w, "Final time    : %.6g ± %.6g\n", s.MeanTime, s.StdTime)
	fmt.Fprintf(w, "Max sites     : %d\n", s.MaxSites)
	fmt.Fprintf(w, "Clamped props : %d\n", s.Clamped)
	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %-12s: %d\n", r, s.Reasons[r])
	}
}
